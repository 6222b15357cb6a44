package deploy

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wentf9/xops-deploy/pkg/models"
)

const backupSuffix = ".sql.tar.gz"

// BackupFileName 按本地时间生成备份文件名, 如 2024-05-01-09.sql.tar.gz
func BackupFileName(t time.Time) string {
	return t.Format("2006-01-02-15") + backupSuffix
}

// MaskAddr 只保留 IPv4 地址最后一段: 192.168.1.1 -> *.*.*.1
// 其它地址全部隐藏
func MaskAddr(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil || strings.Contains(addr, ":") {
		return "***"
	}
	return fmt.Sprintf("*.*.*.%d", ip.To4()[3])
}

// NotifyMessage 生成部署成功的消息: "<text> name[*.*.*.N] ..."
func NotifyMessage(text string, nodes []models.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, fmt.Sprintf("%s[%s]", n.Name, MaskAddr(n.Address)))
	}
	return text + " " + strings.Join(parts, " ")
}

// quote 为 shell 参数加单引号, 简单参数原样返回
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, unsafeRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("@%_-+=:,./", r)
}
