package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wentf9/xops-deploy/pkg/models"
)

// ErrNoBackupConfig 备份组中有主机缺少 mysql 配置
var ErrNoBackupConfig = errors.New("mysql backup config missing")

type Provider struct {
	cfg *Configuration
}

func NewProvider(cfg *Configuration) ConfigProvider {
	return Provider{cfg: cfg}
}

func (cp Provider) GetGroup(mode string) (models.Group, bool) {
	g, ok := cp.cfg.Modes[mode]
	return g, ok
}

// Modes 返回排序后的 mode 名称
func (cp Provider) Modes() []string {
	modes := make([]string, 0, len(cp.cfg.Modes))
	for k := range cp.cfg.Modes {
		modes = append(modes, k)
	}
	sort.Strings(modes)
	return modes
}

func (cp Provider) Archive() models.Archive {
	return cp.cfg.Archive
}

func (cp Provider) VersionFile() string {
	return cp.cfg.VersionFile
}

func (cp Provider) Telegram() Telegram {
	return cp.cfg.Telegram
}

// ValidateBackup 检查组内每台主机都配置了 mysql, 且主机名不重复
// 多台主机的备份按主机名分目录保存
func ValidateBackup(g models.Group) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node name %s", ErrNoBackupConfig, n.Name)
		}
		seen[n.Name] = true
		if n.MySQL == nil {
			return fmt.Errorf("%w: node %s", ErrNoBackupConfig, n.Name)
		}
		if len(n.MySQL.Databases) == 0 {
			return fmt.Errorf("%w: node %s has no databases", ErrNoBackupConfig, n.Name)
		}
	}
	return nil
}
