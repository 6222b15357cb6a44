package utils

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/wentf9/xops-deploy/global"
	"github.com/wentf9/xops-deploy/pkg/config"
	"github.com/wentf9/xops-deploy/pkg/models"
	"golang.org/x/term"
)

// LoadConfig 读取环境变量和配置文件
// path 为空时使用 XDEPLOY_CONFIG 或 ./deploy.yaml
func LoadConfig(path string) (*config.Configuration, *config.Env, error) {
	e, err := config.LoadEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if path == "" {
		path = e.ConfigPath
	}
	cfg, err := config.NewDefaultStore(path).Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("配置文件 %s 不存在", path)
		}
		return nil, nil, fmt.Errorf("加载配置文件失败: %w", err)
	}
	cfg.Merge(e)
	return cfg, e, nil
}

// FillPasswords 为既没有密码也没有私钥的主机从终端读取密码
// 非交互环境下直接返回错误
func FillPasswords(cfg *config.Configuration, mode string) error {
	g, ok := cfg.Modes[mode]
	if !ok {
		return nil
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.KeyPath != "" || n.Password != "" {
			continue
		}
		if !global.IsTerminal {
			return fmt.Errorf("主机 %s 没有配置密码或私钥", n.Name)
		}
		pass, err := ReadPasswordFromTerminal(fmt.Sprintf("请输入 %s@%s 的密码: ", n.User, n.Address))
		if err != nil {
			return err
		}
		n.Identity = models.Identity{User: n.User, Password: pass}
	}
	return nil
}

// ReadPasswordFromTerminal 从终端安全地读取密码
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // ReadPassword 不会打印换行符
	if err != nil {
		return "", err
	}
	return string(password), nil
}
