// Package deploy 打包、上传并在一组主机上安装应用, 以及远程备份 MySQL
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/wentf9/xops-deploy/pkg/archive"
	"github.com/wentf9/xops-deploy/pkg/config"
	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/models"
	"github.com/wentf9/xops-deploy/pkg/notify"
	"github.com/wentf9/xops-deploy/pkg/vcs"
)

// Deployer 按 mode 对一个主机组执行部署
// 流程: 校验 mode -> (检查分支) -> 写版本文件 -> 打包 -> 逐台上传 -> (通知)
type Deployer struct {
	Config   config.ConfigProvider
	Repo     vcs.Repository // deploy 需要, upload/backup 不需要
	Builder  *archive.Builder
	Dialer   Dialer
	Notifier notify.Notifier // 为空时跳过通知

	PostInstall PostInstall

	Out io.Writer        // 面向操作者的输出, 默认 os.Stdout
	Now func() time.Time // 默认 time.Now
}

// Result 记录一次上传或备份的结果
type Result struct {
	Mode      string
	Succeeded []models.Node
	Files     []string // 备份文件的本地路径
	Failed    error    // *multierror.Error, 全部成功时为 nil
	Notified  bool
}

func (d *Deployer) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Deployer) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Group 查找 mode 对应的主机组
func (d *Deployer) Group(mode string) (models.Group, error) {
	g, ok := d.Config.GetGroup(mode)
	if !ok {
		return models.Group{}, fmt.Errorf("%w %q, available: %s", ErrUnknownMode, mode, strings.Join(d.Config.Modes(), ", "))
	}
	return g, nil
}

// CheckMode 校验 mode 和分支, 不产生任何副作用
func (d *Deployer) CheckMode(mode string) (models.Group, error) {
	g, err := d.Group(mode)
	if err != nil {
		return g, err
	}
	if !g.CheckBranch {
		return g, nil
	}
	if d.Repo == nil {
		return g, fmt.Errorf("mode %s requires a git repository", mode)
	}
	branch, err := d.Repo.Branch()
	if err != nil {
		return g, fmt.Errorf("read branch: %w", err)
	}
	if branch != mode {
		return g, fmt.Errorf("%w, mode=%s branch=%s", ErrBranchMismatch, mode, branch)
	}
	return g, nil
}

// Deploy 完整的部署流程
// mode 或分支校验失败时在写任何文件之前返回错误
func (d *Deployer) Deploy(ctx context.Context, mode string) (*Result, error) {
	if _, err := d.CheckMode(mode); err != nil {
		return nil, err
	}
	if d.Repo == nil {
		return nil, fmt.Errorf("deploy requires a git repository")
	}
	if err := vcs.WriteVersionFile(d.Repo, d.Config.VersionFile()); err != nil {
		return nil, fmt.Errorf("write version file: %w", err)
	}
	if err := d.Compress(ctx); err != nil {
		// 旧包没能删除时不能继续, 否则会上传上一次的包
		if _, serr := os.Lstat(d.Config.Archive().Filename); serr == nil {
			return nil, fmt.Errorf("%w: %v", ErrStaleArchive, err)
		}
		// 打包失败时文件不存在, 由 Upload 报告
		logger.Logger.Error("compress failed", "error", err)
	}
	return d.Upload(ctx, mode)
}

// Compress 生成部署包
func (d *Deployer) Compress(ctx context.Context) error {
	spec := d.Config.Archive()
	b := d.Builder
	if b == nil {
		b = &archive.Builder{}
	}
	logger.Logger.Info("compress", "target", spec.Filename, "root", spec.Root, "includes", spec.Includes, "excludes", spec.Excludes)
	return b.Build(ctx, spec.Filename, spec)
}

// Upload 把部署包逐台上传到 mode 对应的主机
// 单台失败只记录, 不影响后续主机
func (d *Deployer) Upload(ctx context.Context, mode string) (*Result, error) {
	g, err := d.Group(mode)
	if err != nil {
		return nil, err
	}
	file := d.Config.Archive().Filename
	if info, err := os.Stat(file); err != nil || info.IsDir() {
		fmt.Fprintln(d.out(), "File not found")
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, file)
		}
		return nil, fmt.Errorf("%w: %v", ErrArchiveMissing, err)
	}

	res := &Result{Mode: mode}
	for _, node := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger.Logger.Info("upload", "node", node.Name, "addr", node.Address, "deploy_dir", node.DeployDir)
		if err := Upload(ctx, d.Dialer, node, file, d.PostInstall); err != nil {
			d.reportFailure(res, node, "upload", err)
			continue
		}
		fmt.Fprintf(d.out(), "[SUCCESS] %s %s\n", node.Name, node.Address)
		res.Succeeded = append(res.Succeeded, node)
	}

	if g.Notify {
		res.Notified = d.notifyDeployed(ctx, g, res.Succeeded)
	}
	return res, nil
}

// Backup 在 mode 对应的每台主机上备份 MySQL
// 组内有多台主机时, 每台主机的备份保存在 localPath 所在目录下以主机名命名的子目录中
func (d *Deployer) Backup(ctx context.Context, mode, localPath string) (*Result, error) {
	g, err := d.Group(mode)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateBackup(g); err != nil {
		return nil, err
	}

	res := &Result{Mode: mode}
	for _, node := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger.Logger.Info("backup mysql", "node", node.Name, "addr", node.Address, "databases", node.MySQL.Databases)
		out := localPath
		if len(g.Nodes) > 1 {
			// 备份文件名只包含时间, 多台主机时按主机分目录, 避免互相覆盖
			out = filepath.Join(filepath.Dir(expandHomeDir(localPath)), node.Name, filepath.Base(localPath))
		}
		file, err := Backup(ctx, d.Dialer, node, out, d.now())
		if err != nil {
			d.reportFailure(res, node, "backup_mysql", err)
			continue
		}
		fmt.Fprintf(d.out(), "[SUCCESS] %s -> %s\n", node.Name, file)
		res.Succeeded = append(res.Succeeded, node)
		res.Files = append(res.Files, file)
	}
	return res, nil
}

// Notify 直接发送一条消息
func (d *Deployer) Notify(ctx context.Context, msg string) error {
	if d.Notifier == nil {
		return ErrNoNotifier
	}
	return d.Notifier.Send(ctx, msg)
}

func (d *Deployer) notifyDeployed(ctx context.Context, g models.Group, nodes []models.Node) bool {
	msg := NotifyMessage(d.Config.Telegram().Text, nodes)
	if g.NotifyLog > 0 && d.Repo != nil {
		if lines, err := d.Repo.LastLog(g.NotifyLog); err == nil && len(lines) > 0 {
			msg += "\n" + strings.Join(lines, "\n")
		}
	}
	if err := d.Notify(ctx, msg); err != nil {
		// 通知失败不影响部署结果
		logger.Logger.Error("send notification failed", "group", g.Name, "error", err)
		fmt.Fprintf(d.out(), "Send Telegram msg failed: %v\n", err)
		return false
	}
	return true
}

func (d *Deployer) reportFailure(res *Result, node models.Node, op string, err error) {
	step := ""
	var se *StepError
	if errors.As(err, &se) {
		step = se.Step
	}
	logger.Logger.Error(op+" failed", "node", node.Name, "addr", node.Address, "step", step, "error", err)
	fmt.Fprintf(d.out(), "[ERROR] %s %s: %v\n", node.Name, node.Address, err)
	res.Failed = multierror.Append(res.Failed, err)
}
