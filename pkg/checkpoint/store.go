// Package checkpoint implements the Checkpoint Store (C3): a single
// durable scalar, last_scanned_block, persisted with a rename-over-temp
// write so the on-disk file is always either fully old or fully new.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store persists last_scanned_block to a plain file (§4.3, §6). The relayer
// must only call Store after every lock event with source_block <= height
// has reached terminal status.
type Store struct {
	path string
}

// New returns a Store backed by path. The containing directory is created
// if missing, matching the restrictive-permission directory setup used
// elsewhere in this codebase for on-disk key material.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint: path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("checkpoint: create directory %s: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// Load returns the persisted block height, or 0 if no checkpoint file
// exists yet (§4.3).
func (s *Store) Load() (uint64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}

	height, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("checkpoint: parse %s: %w", s.path, err)
	}
	return height, nil
}

// Store durably persists height via write-to-temp then rename, so a crash
// mid-write never leaves a torn file: the rename either lands or it
// doesn't, and POSIX rename(2) within one filesystem is atomic either way.
func (s *Store) Store(height uint64) error {
	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(height, 10)), 0o600); err != nil {
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}
