// Package probe 在部署前检查主机是否可达
package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	ping "github.com/prometheus-community/pro-bing"
)

// Result 是一次检查的结果
type Result struct {
	Addr      string
	Method    string // "icmp" 或 "tcp"
	RTT       time.Duration
	Loss      float64
	Reachable bool
}

// Checker 检查主机连通性
type Checker struct {
	Count   int
	Timeout time.Duration
	// ICMP 需要 root 或 net.ipv4.ping_group_range 权限, 失败时退回 TCP
	Privileged bool
}

func NewChecker() *Checker {
	return &Checker{Count: 3, Timeout: 3 * time.Second}
}

// Check 先 ICMP ping, 不可用或不通时尝试连接 SSH 端口
func (c *Checker) Check(ctx context.Context, addr string, port int) Result {
	if res, err := c.icmp(ctx, addr); err == nil && res.Reachable {
		return res
	}
	return c.tcp(ctx, addr, port)
}

func (c *Checker) icmp(ctx context.Context, addr string) (Result, error) {
	pinger, err := ping.NewPinger(addr)
	if err != nil {
		return Result{}, fmt.Errorf("create pinger: %w", err)
	}
	pinger.SetPrivileged(c.Privileged)
	pinger.Count = c.Count
	pinger.Interval = 200 * time.Millisecond
	pinger.Timeout = c.Timeout
	if err := pinger.RunWithContext(ctx); err != nil {
		return Result{}, err
	}
	stats := pinger.Statistics()
	return Result{
		Addr:      addr,
		Method:    "icmp",
		RTT:       stats.AvgRtt,
		Loss:      stats.PacketLoss,
		Reachable: stats.PacketsRecv > 0,
	}, nil
}

func (c *Checker) tcp(ctx context.Context, addr string, port int) Result {
	target := net.JoinHostPort(addr, strconv.Itoa(port))
	d := net.Dialer{Timeout: c.Timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", target)
	res := Result{Addr: target, Method: "tcp", Loss: 100}
	if err != nil {
		return res
	}
	conn.Close()
	res.RTT = time.Since(start)
	res.Loss = 0
	res.Reachable = true
	return res
}
