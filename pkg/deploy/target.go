package deploy

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wentf9/xops-deploy/pkg/executor"
	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/models"
)

// Dialer 为一台主机打开远程会话
type Dialer interface {
	Dial(ctx context.Context, node models.Node) (executor.Executor, error)
}

// PostInstall 在解压和 chown 之后执行, 例如重启服务
type PostInstall func(ctx context.Context, node models.Node, exec executor.Executor) error

// Upload 把本地 archive 部署到 node:
// 上传到临时目录 -> 解压到部署目录 -> sudo chown -> 删除远程包 -> post install
// 任一步骤失败立即返回 *StepError, 会话总会被关闭
func Upload(ctx context.Context, d Dialer, node models.Node, archive string, hook PostInstall) error {
	exec, err := d.Dial(ctx, node)
	if err != nil {
		return &StepError{Node: node.Name, Step: StepConnect, Err: err}
	}
	defer exec.Close()

	remote := path.Join(node.TempDir, filepath.Base(archive))
	fail := func(step string, err error) error {
		return &StepError{Node: node.Name, Step: step, Err: err}
	}

	if err := exec.Put(ctx, archive, remote); err != nil {
		return fail(StepTransfer, err)
	}
	if _, err := exec.Run(ctx, fmt.Sprintf("tar xzf %s -C %s", quote(remote), quote(node.DeployDir))); err != nil {
		return fail(StepExtract, err)
	}
	if _, err := exec.RunWithSudo(ctx, fmt.Sprintf("chown -R %s %s", quote(node.Owner), quote(node.DeployDir))); err != nil {
		return fail(StepChown, err)
	}
	if _, err := exec.Run(ctx, "rm -f "+quote(remote)); err != nil {
		return fail(StepCleanup, err)
	}

	for _, cmd := range node.PostInstall {
		logger.Logger.Debug("post install", "node", node.Name, "cmd", cmd)
		if _, err := exec.Run(ctx, cmd); err != nil {
			return fail(StepPostInstall, err)
		}
	}
	if hook != nil {
		if err := hook(ctx, node, exec); err != nil {
			return fail(StepPostInstall, err)
		}
	}
	return nil
}

// Backup 在 node 上执行 mysqldump, 压缩后下载到 localPath 所在目录
// 返回本地备份文件路径, 文件名由 now 决定
func Backup(ctx context.Context, d Dialer, node models.Node, localPath string, now time.Time) (string, error) {
	if node.MySQL == nil {
		return "", &StepError{Node: node.Name, Step: StepDump, Err: fmt.Errorf("no mysql config")}
	}
	exec, err := d.Dial(ctx, node)
	if err != nil {
		return "", &StepError{Node: node.Name, Step: StepConnect, Err: err}
	}
	defer exec.Close()

	sqlFile := node.Name + ".sql"
	tarFile := sqlFile + ".tar.gz"
	inTemp := func(cmd string) string {
		return fmt.Sprintf("cd %s && %s", quote(node.TempDir), cmd)
	}
	local := filepath.Join(filepath.Dir(expandHomeDir(localPath)), BackupFileName(now))

	cleaned := false
	defer func() {
		if cleaned {
			return
		}
		// 失败时尽量清理远程临时文件
		if _, err := exec.Run(ctx, inTemp(fmt.Sprintf("rm -f %s %s", quote(sqlFile), quote(tarFile)))); err != nil {
			logger.Logger.Debug("cleanup after failed backup", "node", node.Name, "error", err)
		}
	}()
	fail := func(step string, err error) (string, error) {
		return "", &StepError{Node: node.Name, Step: step, Err: err}
	}

	if _, err := exec.Run(ctx, inTemp(dumpCommand(*node.MySQL, sqlFile))); err != nil {
		return fail(StepDump, err)
	}
	if _, err := exec.Run(ctx, inTemp(fmt.Sprintf("tar czf %s %s", quote(tarFile), quote(sqlFile)))); err != nil {
		return fail(StepCompress, err)
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fail(StepFetch, err)
	}
	if err := exec.Get(ctx, path.Join(node.TempDir, tarFile), local); err != nil {
		return fail(StepFetch, err)
	}
	cleaned = true
	if _, err := exec.Run(ctx, inTemp(fmt.Sprintf("rm -f %s %s", quote(sqlFile), quote(tarFile)))); err != nil {
		return fail(StepCleanup, err)
	}
	return local, nil
}

func dumpCommand(m models.MySQL, out string) string {
	dbs := make([]string, 0, len(m.Databases))
	for _, db := range m.Databases {
		dbs = append(dbs, quote(db))
	}
	args := []string{"mysqldump", "-h" + quote(m.Host), "-P" + strconv.Itoa(m.Port), "-u" + quote(m.User)}
	// 空密码时不能带 -p, 否则 mysqldump 会等待输入
	if m.Password != "" {
		args = append(args, "-p"+quote(m.Password))
	}
	args = append(args, "--databases", strings.Join(dbs, " "))
	return strings.Join(args, " ") + " > " + quote(out)
}

func expandHomeDir(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}
