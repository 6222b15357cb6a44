// Package archive 生成部署用的 tar.gz 包
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/wentf9/xops-deploy/pkg/executor"
	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/models"
)

// Hook 在打包前后执行, 例如编译前端资源
type Hook func(ctx context.Context, spec models.Archive) error

// Builder 把 Root 下的 Includes 打包为 tar.gz, 跳过 Excludes
type Builder struct {
	Before Hook
	After  Hook
}

// Build 先删除 target 再重新生成, 不会追加
// 失败时 target 不存在
func (b *Builder) Build(ctx context.Context, target string, spec models.Archive) error {
	if b.Before != nil {
		if err := b.Before(ctx, spec); err != nil {
			return fmt.Errorf("before hook: %w", err)
		}
	}
	if err := Compress(target, spec.Root, spec.Includes, spec.Excludes); err != nil {
		return err
	}
	if b.After != nil {
		if err := b.After(ctx, spec); err != nil {
			return fmt.Errorf("after hook: %w", err)
		}
	}
	return nil
}

// Compress 生成 target, 相同的输入得到字节相同的文件
func Compress(target, root string, includes, excludes []string) (err error) {
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old archive: %w", err)
	}
	if len(includes) == 0 {
		return fmt.Errorf("nothing to archive in %s", root)
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(target)
		}
	}()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gw)

	// 打包文件自身位于 root 下时不能把自己打进去
	self, _ := filepath.Abs(target)
	m := matcher(excludes)
	for _, inc := range includes {
		inc = path.Clean(filepath.ToSlash(inc))
		if err := addTree(tw, root, inc, self, m); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

func addTree(tw *tar.Writer, root, include, self string, excluded matcher) error {
	start := filepath.Join(root, filepath.FromSlash(include))
	if _, err := os.Lstat(start); err != nil {
		return fmt.Errorf("include %s: %w", include, err)
	}
	// WalkDir 按字典序遍历, 保证输出稳定
	return filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if excluded.match(rel) {
			logger.Logger.Debug("archive exclude", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == self {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return writeEntry(tw, p, rel, info)
	})
}

func writeEntry(tw *tar.Writer, p, name string, info fs.FileInfo) error {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		l, err := os.Readlink(p)
		if err != nil {
			return err
		}
		link = l
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	// 去掉与内容无关、每次都可能变化的字段
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.ModTime = info.ModTime().Truncate(time.Second)
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

type matcher []string

// match 与 tar --exclude 类似: 完整路径、目录前缀、通配符或文件名通配符
func (m matcher) match(rel string) bool {
	for _, ex := range m {
		ex = strings.TrimSuffix(path.Clean(filepath.ToSlash(ex)), "/")
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
		if ok, _ := path.Match(ex, rel); ok {
			return true
		}
		if !strings.Contains(ex, "/") {
			if ok, _ := path.Match(ex, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

// ShellHook 依次在本地执行 cmds, 任一失败即返回
func ShellHook(runner executor.Runner, cmds []string) Hook {
	if len(cmds) == 0 {
		return nil
	}
	return func(ctx context.Context, spec models.Archive) error {
		for _, cmd := range cmds {
			logger.Logger.Info("run hook", "cmd", cmd)
			out, err := runner.Run(ctx, cmd)
			if err != nil {
				return err
			}
			logger.Logger.Debug("hook output", "cmd", cmd, "output", out)
		}
		return nil
	}
}
