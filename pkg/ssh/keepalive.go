package ssh

import (
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// StartKeepAlive 开启一个协程，定期向 SSH Server 发送心跳
// 返回的 stop 函数用于结束心跳; 心跳失败时会关闭连接并调用 fallback
func StartKeepAlive(client *ssh.Client, interval time.Duration, fallback func(err error)) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			// "keepalive@openssh.com" 是 OpenSSH 标准的心跳请求类型
			_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
			if err != nil {
				// 显式关闭 Client，正在使用的 Session 也会收到错误
				client.Close()
				if fallback != nil {
					fallback(err)
				}
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
