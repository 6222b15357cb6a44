// Package vcs 读取本地 git 仓库的分支和提交信息
package vcs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const shortHashLen = 7

// ErrNoCommits 仓库还没有任何提交
var ErrNoCommits = errors.New("repository has no commits")

// Repository 是部署流程需要的仓库信息
type Repository interface {
	Branch() (string, error)
	Commit(short bool) (string, error)
	LastLog(n int) ([]string, error)
}

type Repo struct {
	repo *git.Repository
}

// Open 打开 dir 所在的仓库, 会向上查找 .git
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", dir, err)
	}
	return &Repo{repo: r}, nil
}

func (r *Repo) head() (*plumbing.Reference, error) {
	ref, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoCommits
	}
	return ref, err
}

// Branch 返回当前分支名, 分离头指针时返回 "HEAD"
func (r *Repo) Branch() (string, error) {
	ref, err := r.head()
	if err != nil {
		return "", err
	}
	if !ref.Name().IsBranch() {
		return "HEAD", nil
	}
	return ref.Name().Short(), nil
}

// Commit 返回 HEAD 的提交 hash
func (r *Repo) Commit(short bool) (string, error) {
	ref, err := r.head()
	if err != nil {
		return "", err
	}
	hash := ref.Hash().String()
	if short {
		return hash[:shortHashLen], nil
	}
	return hash, nil
}

// LastLog 返回最近 n 条提交, 格式同 git log --oneline
func (r *Repo) LastLog(n int) ([]string, error) {
	ref, err := r.head()
	if err != nil {
		return nil, err
	}
	iter, err := r.repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	lines := make([]string, 0, n)
	for len(lines) < n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		lines = append(lines, oneline(c))
	}
	return lines, nil
}

func oneline(c *object.Commit) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return c.Hash.String()[:shortHashLen] + " " + subject
}
