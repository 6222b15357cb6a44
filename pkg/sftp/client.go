package sftp

import (
	"fmt"

	"github.com/pkg/sftp"
	"github.com/wentf9/xops-deploy/pkg/ssh"
)

// Option 定义配置函数的类型
type Option func(*Client)

func WithThreadsPerFile(t int) Option {
	return func(c *Client) {
		if t > 0 {
			c.config.ThreadsPerFile = t
		}
	}
}

func WithChunkSize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.config.ChunkSize = size
		}
	}
}

// Client 包装了 sftp.Client
type Client struct {
	sftpClient *sftp.Client
	config     TransferConfig
}

// NewClient 基于现有的 SSH 连接打开 SFTP 子系统
func NewClient(sshCli *ssh.Client, opts ...Option) (*Client, error) {
	client, err := sftp.NewClient(sshCli.SSHClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp subsystem: %w", err)
	}
	sftpCli := &Client{
		sftpClient: client,
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(sftpCli)
	}
	return sftpCli, nil
}

// Close 关闭 SFTP 会话, 不关闭底层的 SSH 连接
func (c *Client) Close() error {
	return c.sftpClient.Close()
}

// JoinPath 处理远程路径拼接 (SFTP 协议强制使用 forward slash)
func (c *Client) JoinPath(elem ...string) string {
	return c.sftpClient.Join(elem...)
}

// Size 返回远程文件大小
func (c *Client) Size(remotePath string) (int64, error) {
	info, err := c.sftpClient.Stat(remotePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
