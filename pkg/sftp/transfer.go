package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Upload 上传单个文件, remotePath 是已存在的目录时保存为同名文件
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, progress ProgressCallback) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat local path failed: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}
	if st, err := c.sftpClient.Stat(remotePath); err == nil && st.IsDir() {
		remotePath = c.JoinPath(remotePath, filepath.Base(localPath))
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remotePath, err)
	}

	if err := c.copy(ctx, src, dst, info.Size(), progress); err != nil {
		dst.Close()
		return fmt.Errorf("upload %s -> %s: %w", localPath, remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close remote %s: %w", remotePath, err)
	}
	return nil
}

// Download 下载单个文件, localPath 是已存在的目录时保存为同名文件
func (c *Client) Download(ctx context.Context, remotePath, localPath string, progress ProgressCallback) (err error) {
	info, err := c.sftpClient.Stat(remotePath)
	if err != nil {
		return fmt.Errorf("stat remote path failed: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", remotePath)
	}
	if st, err := os.Stat(localPath); err == nil && st.IsDir() {
		localPath = filepath.Join(localPath, path.Base(remotePath))
	}

	src, err := c.sftpClient.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	// 先写临时文件, 成功后再 rename, 失败时不会破坏已有的同名文件
	dst, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return err
	}
	tmp := dst.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err = c.copy(ctx, src, dst, info.Size(), progress); err != nil {
		dst.Close()
		return fmt.Errorf("download %s -> %s: %w", remotePath, localPath, err)
	}
	if err = dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmp, localPath); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, localPath, err)
	}
	return nil
}

// copy 小文件流式传输, 大文件按块并发读写 (ReadAt/WriteAt 并发安全)
func (c *Client) copy(ctx context.Context, src io.ReaderAt, dst io.WriterAt, size int64, progress ProgressCallback) error {
	chunkSize := c.config.ChunkSize
	if c.config.ThreadsPerFile <= 1 || size < chunkSize {
		return streamTransfer(io.NewSectionReader(src, 0, size), dst, progress)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.ThreadsPerFile)

	for offset := int64(0); offset < size; offset += chunkSize {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := min(chunkSize, size-offset)
			buf := make([]byte, n)
			read, err := src.ReadAt(buf, offset)
			if err != nil && err != io.EOF {
				return fmt.Errorf("read at %d failed: %w", offset, err)
			}
			if read == 0 {
				return nil
			}
			if _, err := dst.WriteAt(buf[:read], offset); err != nil {
				return fmt.Errorf("write at %d failed: %w", offset, err)
			}
			if progress != nil {
				progress(read)
			}
			return nil
		})
	}
	return g.Wait()
}

func streamTransfer(r io.Reader, w io.WriterAt, progress ProgressCallback) error {
	buf := make([]byte, 32*1024)
	var off int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, wErr := w.WriteAt(buf[:n], off); wErr != nil {
				return wErr
			}
			off += int64(n)
			if progress != nil {
				progress(n)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
