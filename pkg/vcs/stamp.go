package vcs

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteVersionFile 把当前短提交 hash 写入 path, 覆盖原有内容
//
//	export const version='<short hash>'
func WriteVersionFile(repo Repository, path string) error {
	commit, err := repo.Commit(true)
	if err != nil {
		return fmt.Errorf("read commit: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content := fmt.Sprintf("export const version='%s'\n", commit)
	return os.WriteFile(path, []byte(content), 0o644)
}
