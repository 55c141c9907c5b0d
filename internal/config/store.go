package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rileyhilliard/rmon/internal/errors"
	"gopkg.in/yaml.v3"
)

const configHeader = "# rmon configuration\n# Hosts are managed with `rmon host add/remove/enable/disable`.\n\n"

// FileStore reads and writes the config file. Writes replace the file
// atomically and are serialized.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for path, or DefaultPath() when empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{path: path}
}

// Path returns the config file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the config file.
func (s *FileStore) Load() (*Config, error) {
	return Load(s.path)
}

// Save writes cfg to disk with 0600 permissions since it may hold passwords.
func (s *FileStore) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cfg)
}

// SaveHosts replaces the host list and include-local flag, keeping the rest
// of the file as it is on disk.
func (s *FileStore) SaveHosts(hosts []Host, includeLocal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	cfg.Hosts = hosts
	cfg.IncludeLocal = includeLocal
	return s.write(cfg)
}

func (s *FileStore) write(cfg *Config) error {
	out := *cfg
	// The state dir defaults to the config dir; don't pin the default.
	if out.StateDir == filepath.Dir(s.path) {
		out.StateDir = ""
	}
	if out.Version == 0 {
		out.Version = CurrentConfigVersion
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config",
			"This is a bug, please report it.")
	}

	return WriteFileAtomic(s.path, append([]byte(configHeader), data...), 0600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't create "+dir,
			"Check you have write permission on the parent directory.")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			"Couldn't write "+path,
			"Check you have write permission on "+dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WrapWithCode(err, errors.ErrStore, "Couldn't write "+path, "Check free disk space.")
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.WrapWithCode(err, errors.ErrStore, "Couldn't set permissions on "+path, "")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Couldn't write "+path, "Check free disk space.")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Couldn't replace "+path, "Check you have write permission on "+dir)
	}
	return nil
}
