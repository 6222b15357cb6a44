package deploy

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/wentf9/xops-deploy/pkg/executor"
	"github.com/wentf9/xops-deploy/pkg/models"
)

// fakeExec 记录所有调用, failOn 中的子串匹配到命令时返回错误
type fakeExec struct {
	calls  []string
	failOn string
	closed bool
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.Contains(call, f.failOn) {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeExec) Run(ctx context.Context, cmd string) (string, error) {
	return "", f.record("run " + cmd)
}

func (f *fakeExec) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	return "", f.record("sudo " + cmd)
}

func (f *fakeExec) Put(ctx context.Context, local, remote string) error {
	return f.record("put " + local + " " + remote)
}

func (f *fakeExec) Get(ctx context.Context, remote, local string) error {
	if err := f.record("get " + remote + " " + local); err != nil {
		return err
	}
	return os.WriteFile(local, []byte("dump"), 0o644)
}

func (f *fakeExec) Close() error {
	f.closed = true
	return nil
}

// fakeDialer 为每个节点返回同一个 fakeExec, failConnect 中的节点连接失败
type fakeDialer struct {
	execs       map[string]*fakeExec
	failConnect map[string]bool
	failOn      map[string]string
	dialed      []string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		execs:       map[string]*fakeExec{},
		failConnect: map[string]bool{},
		failOn:      map[string]string{},
	}
}

func (d *fakeDialer) Dial(ctx context.Context, node models.Node) (executor.Executor, error) {
	d.dialed = append(d.dialed, node.Name)
	if d.failConnect[node.Name] {
		return nil, errors.New("connection refused")
	}
	e := &fakeExec{failOn: d.failOn[node.Name]}
	d.execs[node.Name] = e
	return e, nil
}

type fakeRepo struct {
	branch string
	commit string
	log    []string
}

func (r fakeRepo) Branch() (string, error) { return r.branch, nil }

func (r fakeRepo) Commit(short bool) (string, error) { return r.commit, nil }

func (r fakeRepo) LastLog(n int) ([]string, error) {
	if n < len(r.log) {
		return r.log[:n], nil
	}
	return r.log, nil
}

type fakeNotifier struct {
	msgs []string
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg string) error {
	n.msgs = append(n.msgs, msg)
	return n.err
}
