package executor

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/models"
	"github.com/wentf9/xops-deploy/pkg/sftp"
	"github.com/wentf9/xops-deploy/pkg/ssh"
)

// SSHExecutor 包装 ssh.Client 以满足 Executor 接口
// SFTP 子系统在第一次传输时打开
type SSHExecutor struct {
	client   *ssh.Client
	sftp     *sftp.Client
	sudoPwd  string
	progress bool
	sftpOpts []sftp.Option
	stopKeep func()
}

func NewSSHExecutor(client *ssh.Client, sudoPwd string) *SSHExecutor {
	return &SSHExecutor{client: client, sudoPwd: sudoPwd}
}

// WithProgress 传输时显示进度条
func (e *SSHExecutor) WithProgress(on bool) *SSHExecutor {
	e.progress = on
	return e
}

func (e *SSHExecutor) Run(ctx context.Context, cmd string) (string, error) {
	return e.client.Run(ctx, cmd)
}

func (e *SSHExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	return e.client.RunWithSudo(ctx, cmd, e.sudoPwd)
}

func (e *SSHExecutor) Put(ctx context.Context, local, remote string) error {
	cli, err := e.sftpClient()
	if err != nil {
		return err
	}
	var bar *progressBar
	if e.progress {
		if info, err := os.Stat(local); err == nil {
			bar = newProgressBar(info.Size(), "上传 "+path.Base(remote))
		}
	}
	return cli.Upload(ctx, local, remote, bar.callback())
}

func (e *SSHExecutor) Get(ctx context.Context, remote, local string) error {
	cli, err := e.sftpClient()
	if err != nil {
		return err
	}
	var bar *progressBar
	if e.progress {
		if size, err := cli.Size(remote); err == nil {
			bar = newProgressBar(size, "下载 "+path.Base(remote))
		}
	}
	return cli.Download(ctx, remote, local, bar.callback())
}

func (e *SSHExecutor) Close() error {
	if e.stopKeep != nil {
		e.stopKeep()
	}
	if e.sftp != nil {
		e.sftp.Close()
	}
	return e.client.Close()
}

func (e *SSHExecutor) sftpClient() (*sftp.Client, error) {
	if e.sftp != nil {
		return e.sftp, nil
	}
	cli, err := sftp.NewClient(e.client, e.sftpOpts...)
	if err != nil {
		return nil, err
	}
	e.sftp = cli
	return cli, nil
}

// SSHDialer 为部署目标建立 SSH 会话
type SSHDialer struct {
	Connector *ssh.Connector
	Progress  bool
	// 大于 0 时在会话期间发送心跳, mysqldump 等长时间命令不会被断开
	KeepAlive time.Duration
	// 单个文件的并发分块数和分块大小, 0 使用默认值
	Threads   int
	ChunkSize int64
}

func (d SSHDialer) Dial(ctx context.Context, node models.Node) (Executor, error) {
	client, err := d.Connector.Connect(ctx, node.Endpoint, node.Jump)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", node.Name, err)
	}
	e := NewSSHExecutor(client, node.SudoPassword()).WithProgress(d.Progress)
	e.sftpOpts = []sftp.Option{sftp.WithThreadsPerFile(d.Threads), sftp.WithChunkSize(d.ChunkSize)}
	if d.KeepAlive > 0 {
		addr := client.Endpoint().Address
		e.stopKeep = ssh.StartKeepAlive(client.SSHClient(), d.KeepAlive, func(err error) {
			logger.Logger.Warn("keepalive failed", "node", node.Name, "addr", addr, "error", err)
		})
	}
	return e, nil
}
