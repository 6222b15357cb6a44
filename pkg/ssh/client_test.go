package ssh

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wentf9/xops-deploy/pkg/models"
	"golang.org/x/crypto/ssh"
)

// testServer 是一个最小的 SSH server:
// exec "fail" 返回 1, "sleep" 一直阻塞, sudo 命令回显 stdin 第一行, 其它命令回显命令本身
// 支持 direct-tcpip, 可以作为跳板机
type testServer struct {
	addr     string
	port     int
	password string
}

func startServer(t *testing.T, password string) *testServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	cfg.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg)
		}
	}()

	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	return &testServer{addr: host, port: p, password: password}
}

func (s *testServer) endpoint(password string) models.Endpoint {
	return models.Endpoint{
		Host:     models.Host{Address: s.addr, Port: s.port},
		Identity: models.Identity{User: "deploy", Password: password},
	}
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		switch nc.ChannelType() {
		case "session":
			ch, reqs, err := nc.Accept()
			if err != nil {
				continue
			}
			go serveSession(ch, reqs)
		case "direct-tcpip":
			go forward(nc)
		default:
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported")
		}
	}
}

func serveSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		status := uint32(0)
		switch {
		case payload.Command == "fail":
			fmt.Fprint(ch.Stderr(), "no such file")
			status = 1
		case payload.Command == "sleep":
			time.Sleep(5 * time.Second)
		case strings.HasPrefix(payload.Command, "sudo "):
			line, _ := bufio.NewReader(ch).ReadString('\n')
			fmt.Fprintf(ch, "%s|%s", payload.Command, strings.TrimSpace(line))
		default:
			fmt.Fprint(ch, payload.Command)
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func forward(nc ssh.NewChannel) {
	var payload struct {
		Host     string
		Port     uint32
		OrigHost string
		OrigPort uint32
	}
	if err := ssh.Unmarshal(nc.ExtraData(), &payload); err != nil {
		_ = nc.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	target, err := net.Dial("tcp", net.JoinHostPort(payload.Host, strconv.Itoa(int(payload.Port))))
	if err != nil {
		_ = nc.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	ch, reqs, err := nc.Accept()
	if err != nil {
		target.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	go func() {
		_, _ = io.Copy(target, ch)
		target.Close()
	}()
	_, _ = io.Copy(ch, target)
	ch.Close()
}

func TestConnect_Run(t *testing.T) {
	srv := startServer(t, "1234")
	c := NewConnector(WithTimeout(5 * time.Second))

	client, err := c.Connect(context.Background(), srv.endpoint("1234"), nil)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, srv.port, client.Endpoint().Port)

	out, err := client.Run(context.Background(), "tar xzf /tmp/upload.tar.gz -C /home/test")
	require.NoError(t, err)
	assert.Equal(t, "tar xzf /tmp/upload.tar.gz -C /home/test", out)

	out, err = client.Run(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, out, "no such file")
	assert.ErrorContains(t, err, "no such file")
}

func TestConnect_RunWithSudo(t *testing.T) {
	srv := startServer(t, "1234")
	client, err := NewConnector().Connect(context.Background(), srv.endpoint("1234"), nil)
	require.NoError(t, err)
	defer client.Close()

	out, err := client.RunWithSudo(context.Background(), "chown -R www:www /home/test", "sudo-pass")
	require.NoError(t, err)
	assert.Equal(t, "sudo -S -p '' chown -R www:www /home/test|sudo-pass", out)
}

func TestConnect_RunHonorsContext(t *testing.T) {
	srv := startServer(t, "1234")
	client, err := NewConnector().Connect(context.Background(), srv.endpoint("1234"), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	out, err := client.Run(ctx, "sleep")

	// 命令被放弃后输出缓冲不再被写入, 返回不依赖远程命令结束
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, out)
	assert.Less(t, time.Since(start), 3*time.Second)

	// 连接仍可继续使用
	out, err = client.Run(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "uptime", out)
}

func TestConnect_WrongPassword(t *testing.T) {
	srv := startServer(t, "1234")

	_, err := NewConnector().Connect(context.Background(), srv.endpoint("wrong"), nil)

	assert.ErrorContains(t, err, "handshake failed")
}

func TestConnect_ThroughJumpHost(t *testing.T) {
	target := startServer(t, "target-pass")
	bastion := startServer(t, "jump-pass")
	jump := bastion.endpoint("jump-pass")

	client, err := NewConnector().Connect(context.Background(), target.endpoint("target-pass"), &jump)
	require.NoError(t, err)
	require.NotNil(t, client.jump)

	out, err := client.Run(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "hostname", out)
	assert.NoError(t, client.Close())
}

func TestConnect_JumpHostFailure(t *testing.T) {
	target := startServer(t, "target-pass")
	bastion := startServer(t, "jump-pass")
	jump := bastion.endpoint("bad")

	_, err := NewConnector().Connect(context.Background(), target.endpoint("target-pass"), &jump)

	assert.ErrorContains(t, err, "jump host")
}

func TestStartKeepAlive(t *testing.T) {
	srv := startServer(t, "1234")
	client, err := NewConnector().Connect(context.Background(), srv.endpoint("1234"), nil)
	require.NoError(t, err)
	defer client.Close()

	failed := make(chan error, 1)
	stop := StartKeepAlive(client.SSHClient(), 20*time.Millisecond, func(err error) { failed <- err })
	time.Sleep(100 * time.Millisecond)
	stop()
	stop()

	select {
	case err := <-failed:
		t.Fatalf("keepalive failed: %v", err)
	default:
	}
	_, err = client.Run(context.Background(), "echo ok")
	assert.NoError(t, err)
}

func TestConnect_HandshakeTimeout(t *testing.T) {
	// 只接受 TCP 连接, 从不发送 SSH banner
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	conns := make(chan net.Conn, 1)
	t.Cleanup(func() {
		l.Close()
		select {
		case c := <-conns:
			c.Close()
		default:
		}
	})
	go func() {
		if conn, err := l.Accept(); err == nil {
			conns <- conn
		}
	}()
	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	ep := models.Endpoint{Host: models.Host{Address: host, Port: p}, Identity: models.Identity{User: "deploy", Password: "1234"}}

	start := time.Now()
	_, err = NewConnector(WithTimeout(200*time.Millisecond)).Connect(context.Background(), ep, nil)

	assert.ErrorContains(t, err, "handshake failed")
	assert.Less(t, time.Since(start), 3*time.Second)
}
