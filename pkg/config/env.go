package config

import (
	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvPrefix = "XDEPLOY_"

// Env 是从环境变量 (以及可选的 .env 文件) 读取的配置
type Env struct {
	ConfigPath string `env:"CONFIG" envDefault:"deploy.yaml"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Telegram   Telegram
}

// LoadEnv 读取 .env 和 XDEPLOY_ 前缀的环境变量
// .env 不存在时忽略
func LoadEnv(files ...string) (*Env, error) {
	_ = godotenv.Load(files...)
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, err
	}
	return &e, nil
}

// Merge 用环境变量中非空的值覆盖配置文件
func (c *Configuration) Merge(e *Env) {
	if e == nil {
		return
	}
	if e.Telegram.API != "" {
		c.Telegram.API = e.Telegram.API
	}
	if e.Telegram.Token != "" {
		c.Telegram.Token = e.Telegram.Token
	}
	if e.Telegram.ChatID != "" {
		c.Telegram.ChatID = e.Telegram.ChatID
	}
	if e.Telegram.Text != "" {
		c.Telegram.Text = e.Telegram.Text
	}
}
