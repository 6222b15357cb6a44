package deploy

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMode    = errors.New("unknown mode")
	ErrBranchMismatch = errors.New("branch is wrong")
	ErrArchiveMissing = errors.New("file not found")
	ErrStaleArchive   = errors.New("compress failed and the previous archive is still in place")
	ErrNoNotifier     = errors.New("notifier not configured")
)

// 单台主机操作的步骤名
const (
	StepConnect     = "connect"
	StepTransfer    = "transfer"
	StepExtract     = "extract"
	StepChown       = "chown"
	StepCleanup     = "cleanup"
	StepPostInstall = "post-install"
	StepDump        = "dump"
	StepCompress    = "compress"
	StepFetch       = "fetch"
)

// StepError 记录失败的主机和步骤
type StepError struct {
	Node string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Node, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
