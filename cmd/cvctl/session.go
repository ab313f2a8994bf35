package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenStore хранит JWT в ~/.cvctl/token
type tokenStore struct {
	path string
}

func newTokenStore() (*tokenStore, error) {
	if p := os.Getenv("CVCTL_TOKEN_FILE"); p != "" {
		return &tokenStore{path: p}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	return &tokenStore{path: filepath.Join(home, ".cvctl", "token")}, nil
}

func (s *tokenStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *tokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0o600)
}

func (s *tokenStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
