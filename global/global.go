package global

import (
	"os"

	"golang.org/x/term"
)

var (
	IsTerminal       bool = term.IsTerminal(int(os.Stdin.Fd()))  //是否是交互式环境,false表示可能是管道或重定向
	StdoutIsTerminal bool = term.IsTerminal(int(os.Stdout.Fd())) // 进度条只在终端中显示
)
