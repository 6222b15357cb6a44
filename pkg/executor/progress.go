package executor

import (
	"sync"

	"github.com/schollz/progressbar/v3"
)

type progressBar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressBar(size int64, desc string) *progressBar {
	return &progressBar{bar: progressbar.DefaultBytes(size, desc)}
}

// callback 在 nil 上调用时返回 nil, 即不显示进度
func (p *progressBar) callback() func(n int) {
	if p == nil {
		return nil
	}
	return func(n int) {
		p.mu.Lock()
		defer p.mu.Unlock()
		_ = p.bar.Add(n)
	}
}
