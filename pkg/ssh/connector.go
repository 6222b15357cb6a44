package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wentf9/xops-deploy/pkg/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Option 定义 Connector 配置函数
type Option func(*Connector)

// WithTimeout 设置拨号和握手超时
func WithTimeout(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithKnownHosts 使用 known_hosts 文件校验主机公钥
func WithKnownHosts(path string) Option {
	return func(c *Connector) {
		c.knownHosts = path
	}
}

// Connector 负责创建 SSH 连接, 不缓存连接: 每次 Connect 都是一个新会话
type Connector struct {
	timeout    time.Duration
	knownHosts string
}

// NewConnector 创建一个新的 Connector
func NewConnector(opts ...Option) *Connector {
	c := &Connector{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect 建立到 target 的 SSH 连接
// jump 不为空时先连接跳板机，再通过跳板机的 SSH 通道拨号
func (c *Connector) Connect(ctx context.Context, target models.Endpoint, jump *models.Endpoint) (*Client, error) {
	var dialer Dialer = &net.Dialer{Timeout: c.timeout}
	var jumpClient *ssh.Client

	if jump != nil {
		jc, err := c.dial(ctx, dialer, *jump)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to jump host '%s': %w", jump.Address, err)
		}
		jumpClient = jc
		dialer = &SSHProxyDialer{Client: jc}
	}

	raw, err := c.dial(ctx, dialer, target)
	if err != nil {
		if jumpClient != nil {
			jumpClient.Close()
		}
		return nil, err
	}
	client := NewClient(raw, target)
	client.jump = jumpClient
	return client, nil
}

func (c *Connector) dial(ctx context.Context, dialer Dialer, ep models.Endpoint) (*ssh.Client, error) {
	sshConfig, err := c.buildSSHConfig(ep.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to build ssh config for '%s': %w", ep.Address, err)
	}

	targetAddr := net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port))
	conn, err := dialer.DialContext(ctx, "tcp", targetAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial '%s': %w", targetAddr, err)
	}

	// 握手同样受 timeout 限制, 对端只接受 TCP 不响应时不会一直阻塞
	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	// 使用 NewClientConn 接管底层的 conn
	ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake failed for '%s': %w", targetAddr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(ncc, chans, reqs), nil
}

// buildSSHConfig 根据 Identity 构建 ssh.ClientConfig
func (c *Connector) buildSSHConfig(id models.Identity) (*ssh.ClientConfig, error) {
	method, err := NewAuthMethod(id).GetMethod()
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if c.knownHosts != "" {
		hostKeyCallback, err = knownhosts.New(expandHomeDir(c.knownHosts))
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            id.User,
		Auth:            []ssh.AuthMethod{method},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.timeout,
	}, nil
}
