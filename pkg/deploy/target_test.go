package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wentf9/xops-deploy/pkg/executor"
	"github.com/wentf9/xops-deploy/pkg/models"
)

func devNode() models.Node {
	n := models.Node{
		Name:        "dev",
		Endpoint:    models.Endpoint{Host: models.Host{Address: "192.168.1.1"}, Identity: models.Identity{Password: "1234"}},
		DeployDir:   "/home/test",
		PostInstall: []string{"systemctl restart php-fpm"},
	}
	n.ApplyDefaults()
	return n
}

func mysqlNode() models.Node {
	n := models.Node{
		Name:     "mysql",
		Endpoint: models.Endpoint{Host: models.Host{Address: "192.168.1.1"}, Identity: models.Identity{Password: "123456"}},
		MySQL: &models.MySQL{
			Host:      "192.168.1.2",
			User:      "root",
			Password:  "123456",
			Databases: []string{"db1", "db2"},
		},
	}
	n.ApplyDefaults()
	return n
}

func TestUpload_RunsStepsInOrder(t *testing.T) {
	d := newFakeDialer()
	var hooked bool
	hook := func(ctx context.Context, node models.Node, exec executor.Executor) error {
		hooked = true
		return nil
	}

	err := Upload(context.Background(), d, devNode(), "/work/upload.tar.gz", hook)
	require.NoError(t, err)

	e := d.execs["dev"]
	assert.Equal(t, []string{
		"put /work/upload.tar.gz /tmp/upload.tar.gz",
		"run tar xzf /tmp/upload.tar.gz -C /home/test",
		"sudo chown -R www:www /home/test",
		"run rm -f /tmp/upload.tar.gz",
		"run systemctl restart php-fpm",
	}, e.calls)
	assert.True(t, e.closed)
	assert.True(t, hooked)
}

func TestUpload_StopsAtFailedStep(t *testing.T) {
	tests := []struct {
		failOn string
		step   string
		calls  int
	}{
		{"put ", StepTransfer, 1},
		{"tar xzf", StepExtract, 2},
		{"chown", StepChown, 3},
		{"rm -f", StepCleanup, 4},
		{"systemctl", StepPostInstall, 5},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			d := newFakeDialer()
			d.failOn["dev"] = tt.failOn

			err := Upload(context.Background(), d, devNode(), "upload.tar.gz", nil)

			var se *StepError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.step, se.Step)
			assert.Equal(t, "dev", se.Node)
			assert.Len(t, d.execs["dev"].calls, tt.calls)
			assert.True(t, d.execs["dev"].closed, "session must be closed on failure")
		})
	}
}

func TestUpload_ConnectFailure(t *testing.T) {
	d := newFakeDialer()
	d.failConnect["dev"] = true

	err := Upload(context.Background(), d, devNode(), "upload.tar.gz", nil)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepConnect, se.Step)
}

func TestUpload_HookFailure(t *testing.T) {
	d := newFakeDialer()
	node := devNode()
	node.PostInstall = nil
	hook := func(ctx context.Context, node models.Node, exec executor.Executor) error {
		return errors.New("restart failed")
	}

	err := Upload(context.Background(), d, node, "upload.tar.gz", hook)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepPostInstall, se.Step)
	assert.ErrorContains(t, err, "restart failed")
}

func TestBackup_DumpsCompressesAndFetches(t *testing.T) {
	dir := t.TempDir()
	d := newFakeDialer()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)

	file, err := Backup(context.Background(), d, mysqlNode(), filepath.Join(dir, "test.sql"), now)
	require.NoError(t, err)

	want := filepath.Join(dir, "2024-05-01-09.sql.tar.gz")
	assert.Equal(t, want, file)
	assert.FileExists(t, want)

	e := d.execs["mysql"]
	assert.Equal(t, []string{
		"run cd /tmp && mysqldump -h192.168.1.2 -P3306 -uroot -p123456 --databases db1 db2 > mysql.sql",
		"run cd /tmp && tar czf mysql.sql.tar.gz mysql.sql",
		"get /tmp/mysql.sql.tar.gz " + want,
		"run cd /tmp && rm -f mysql.sql mysql.sql.tar.gz",
	}, e.calls)
	assert.True(t, e.closed)
}

func TestBackup_FetchFailureCleansUp(t *testing.T) {
	d := newFakeDialer()
	d.failOn["mysql"] = "get "

	_, err := Backup(context.Background(), d, mysqlNode(), filepath.Join(t.TempDir(), "x.sql"), time.Now())

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepFetch, se.Step)

	e := d.execs["mysql"]
	require.Len(t, e.calls, 4)
	assert.Equal(t, "run cd /tmp && rm -f mysql.sql mysql.sql.tar.gz", e.calls[3])
	assert.True(t, e.closed)
}

func TestBackup_RequiresMySQLConfig(t *testing.T) {
	d := newFakeDialer()

	_, err := Backup(context.Background(), d, devNode(), "x.sql", time.Now())

	require.Error(t, err)
	assert.Empty(t, d.dialed)
}

func TestDumpCommand_Quoting(t *testing.T) {
	m := models.MySQL{Host: "db", Port: 3307, User: "admin", Password: "p'ss w", Databases: []string{"shop"}}
	assert.Equal(t, `mysqldump -hdb -P3307 -uadmin -p'p'\''ss w' --databases shop > out.sql`, dumpCommand(m, "out.sql"))

	m.Password = ""
	assert.Equal(t, `mysqldump -hdb -P3307 -uadmin --databases shop > out.sql`, dumpCommand(m, "out.sql"))
}

func TestBackupFileName(t *testing.T) {
	assert.Equal(t, "2024-05-01-09.sql.tar.gz", BackupFileName(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)))
	assert.Equal(t, "2023-12-31-23.sql.tar.gz", BackupFileName(time.Date(2023, 12, 31, 23, 59, 59, 0, time.Local)))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}-\d{2}\.sql\.tar\.gz$`, BackupFileName(time.Now()))
}

func TestMaskAddr(t *testing.T) {
	assert.Equal(t, "*.*.*.1", MaskAddr("192.168.1.1"))
	assert.Equal(t, "*.*.*.254", MaskAddr("10.0.0.254"))
	assert.Equal(t, "***", MaskAddr("web.example.com"))
	assert.Equal(t, "***", MaskAddr("fe80::1"))
}

func TestNotifyMessage(t *testing.T) {
	a := devNode()
	b := devNode()
	b.Name = "prod"
	b.Address = "10.1.2.3"

	assert.Equal(t, "新版本已发布 dev[*.*.*.1] prod[*.*.*.3]", NotifyMessage("新版本已发布", []models.Node{a, b}))
	assert.Equal(t, "released ", NotifyMessage("released", nil))
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "test.sql"), expandHomeDir("~/test.sql"))
	assert.Equal(t, "/var/backup/x.sql", expandHomeDir("/var/backup/x.sql"))
}
