package cmd

import (
	"time"

	"github.com/wentf9/xops-deploy/cmd/utils"
	"github.com/wentf9/xops-deploy/global"
	"github.com/wentf9/xops-deploy/pkg/archive"
	"github.com/wentf9/xops-deploy/pkg/config"
	"github.com/wentf9/xops-deploy/pkg/deploy"
	"github.com/wentf9/xops-deploy/pkg/executor"
	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/notify"
	"github.com/wentf9/xops-deploy/pkg/ssh"
	"github.com/wentf9/xops-deploy/pkg/vcs"
)

type GlobalOptions struct {
	ConfigPath string
	RepoDir    string
	KnownHosts string
	Timeout    time.Duration
	Threads    int
	ChunkSize  int64
	Debug      bool
	NoProgress bool
}

var globalOpts = &GlobalOptions{}

// ModeOptions 是按 mode 执行的命令共用的参数
type ModeOptions struct {
	Mode string
}

// Complete 位置参数优先于 --mode
func (o *ModeOptions) Complete(args []string) {
	if len(args) > 0 && args[0] != "" {
		o.Mode = args[0]
	}
}

// newDeployer 根据配置组装 Deployer
// needRepo 为 true 时打开 git 仓库失败会返回错误
func newDeployer(mode string, needRepo bool) (*deploy.Deployer, *config.Configuration, error) {
	cfg, _, err := utils.LoadConfig(globalOpts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if mode != "" {
		if err := utils.FillPasswords(cfg, mode); err != nil {
			return nil, nil, err
		}
	}

	local := executor.NewLocalExecutor("")
	connOpts := []ssh.Option{ssh.WithTimeout(globalOpts.Timeout)}
	if globalOpts.KnownHosts != "" {
		connOpts = append(connOpts, ssh.WithKnownHosts(globalOpts.KnownHosts))
	}
	d := &deploy.Deployer{
		Config: config.NewProvider(cfg),
		Builder: &archive.Builder{
			Before: archive.ShellHook(local, cfg.Archive.Before),
			After:  archive.ShellHook(local, cfg.Archive.After),
		},
		Dialer: executor.SSHDialer{
			Connector: ssh.NewConnector(connOpts...),
			Progress:  global.StdoutIsTerminal && !globalOpts.NoProgress,
			KeepAlive: 30 * time.Second,
			Threads:   globalOpts.Threads,
			ChunkSize: globalOpts.ChunkSize,
		},
	}
	if tg := cfg.Telegram; tg.Token != "" && tg.ChatID != "" {
		d.Notifier = notify.NewTelegram(tg.API, tg.Token, tg.ChatID)
	}

	repo, err := vcs.Open(globalOpts.RepoDir)
	if err != nil {
		if needRepo {
			return nil, nil, err
		}
		logger.Logger.Debug("git repository not available", "dir", globalOpts.RepoDir, "error", err)
	} else {
		d.Repo = repo
	}
	return d, cfg, nil
}

func printResult(op string, res *deploy.Result) {
	if res == nil {
		return
	}
	if res.Failed != nil {
		printErr("%s: %d 台成功, 失败:\n%v\n", op, len(res.Succeeded), res.Failed)
	}
}
