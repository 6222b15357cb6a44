package config

import (
	"github.com/wentf9/xops-deploy/pkg/models"
)

const (
	DefaultArchiveName = "upload.tar.gz"
	DefaultVersionFile = "./app/version"
	DefaultNotifyText  = "新版本已发布"
	DefaultTelegramAPI = "https://api.telegram.org"
)

// Telegram 通知配置, 环境变量优先于配置文件
type Telegram struct {
	API    string `yaml:"api,omitempty" env:"TELEGRAM_API"`
	Token  string `yaml:"token,omitempty" env:"TELEGRAM_TOKEN"`
	ChatID string `yaml:"chat_id,omitempty" env:"TELEGRAM_CHAT_ID"`
	Text   string `yaml:"text,omitempty" env:"TELEGRAM_TEXT"`
}

// Configuration 对应 yaml 文件的顶层结构
type Configuration struct {
	Modes       map[string]models.Group `yaml:"modes"`
	Archive     models.Archive          `yaml:"archive"`
	VersionFile string                  `yaml:"version_file,omitempty"`
	Telegram    Telegram                `yaml:"telegram,omitempty"`
}

// ApplyDefaults 填充默认值, Load 之后调用
func (c *Configuration) ApplyDefaults() {
	if c.Archive.Filename == "" {
		c.Archive.Filename = DefaultArchiveName
	}
	if c.Archive.Root == "" {
		c.Archive.Root = "."
	}
	if c.VersionFile == "" {
		c.VersionFile = DefaultVersionFile
	}
	if c.Telegram.API == "" {
		c.Telegram.API = DefaultTelegramAPI
	}
	if c.Telegram.Text == "" {
		c.Telegram.Text = DefaultNotifyText
	}
	for mode, g := range c.Modes {
		if g.Name == "" {
			g.Name = mode
		}
		for i := range g.Nodes {
			g.Nodes[i].ApplyDefaults()
		}
		c.Modes[mode] = g
	}
}

// ConfigProvider 定义部署流程获取配置数据的接口
type ConfigProvider interface {
	GetGroup(mode string) (models.Group, bool)
	Modes() []string
	Archive() models.Archive
	VersionFile() string
	Telegram() Telegram
}
