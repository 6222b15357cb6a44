package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path string
}

func (s *defaultStore) Load() (*Configuration, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var config Configuration
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if len(config.Modes) == 0 {
		return nil, fmt.Errorf("%s: no modes defined", s.Path)
	}
	config.ApplyDefaults()
	return &config, nil
}

func (s *defaultStore) Save(cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	// 配置里有明文密码
	return os.WriteFile(s.Path, data, 0o600)
}

func NewDefaultStore(path string) Store {
	return &defaultStore{
		Path: path,
	}
}
