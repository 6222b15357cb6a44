package executor

import "context"

// Runner 执行命令并返回输出
type Runner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// Executor 是一次远程会话: 命令执行 + 文件传输
// Close 必须在所有退出路径上调用
type Executor interface {
	Runner
	RunWithSudo(ctx context.Context, cmd string) (string, error)
	// Put 上传本地文件到远程路径
	Put(ctx context.Context, local, remote string) error
	// Get 下载远程文件到本地路径
	Get(ctx context.Context, remote, local string) error
	Close() error
}
