package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// LocalExecutor 本地执行器, 用于打包前后的钩子命令
type LocalExecutor struct {
	Dir string // 为空时使用当前目录
}

func NewLocalExecutor(dir string) *LocalExecutor {
	return &LocalExecutor{Dir: dir}
}

func (e *LocalExecutor) Run(ctx context.Context, cmd string) (string, error) {
	// sh -c 支持管道、重定向等语法
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = e.Dir
	out, err := c.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
