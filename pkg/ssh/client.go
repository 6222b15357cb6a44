package ssh

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wentf9/xops-deploy/pkg/models"
	"golang.org/x/crypto/ssh"
)

type Client struct {
	sshClient *ssh.Client
	jump      *ssh.Client // 经过跳板机时不为空
	endpoint  models.Endpoint
}

func NewClient(raw *ssh.Client, endpoint models.Endpoint) *Client {
	return &Client{
		sshClient: raw,
		endpoint:  endpoint,
	}
}

// Close 关闭连接, 包括跳板机连接
func (c *Client) Close() error {
	err := c.sshClient.Close()
	if c.jump != nil {
		if jerr := c.jump.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

// SSHClient 暴露底层的 ssh.Client (供 SFTP 使用)
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

// Endpoint 返回当前连接对应的地址和认证信息
func (c *Client) Endpoint() models.Endpoint {
	return c.endpoint
}

func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	return startWithTimeout(ctx, session, cmd)
}

// RunWithSudo 执行 sudo 命令，自动注入密码，并返回干净的输出
func (c *Client) RunWithSudo(ctx context.Context, command string, password string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	// sudo -S 启动时会立刻从 Stdin 读走密码
	if password != "" {
		session.Stdin = strings.NewReader(password + "\n")
	}

	// -p '': 提示符为空, 输出里不会有 "Password:"
	fullCmd := fmt.Sprintf("sudo -S -p '' %s", command)
	return startWithTimeout(ctx, session, fullCmd)
}

func startWithTimeout(ctx context.Context, session *ssh.Session, command string) (string, error) {
	var b bytes.Buffer
	session.Stdout = &b
	session.Stderr = &b

	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("failed to start command: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return b.String(), fmt.Errorf("failed to run command: %w, output: %s", err, strings.TrimSpace(b.String()))
		}
		return b.String(), nil
	case <-ctx.Done():
		// 很多 sshd 不处理 signal 请求, 关闭 session 保证 Wait 返回
		killErr := session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		if killErr != nil {
			return b.String(), fmt.Errorf("failed to kill command after context done: %v: %w", killErr, ctx.Err())
		}
		return b.String(), ctx.Err()
	}
}
