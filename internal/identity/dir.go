package identity

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DirKeySource serves keys from "<kid>.pem" files in one directory. Each
// file holds an x509 certificate or a PKIX public key.
type DirKeySource struct {
	dir string
	log *slog.Logger

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey

	watcher *fsnotify.Watcher
}

var _ KeySource = (*DirKeySource)(nil)

// NewDirKeySource loads the directory once. Call Watch to follow changes.
func NewDirKeySource(dir string, logger *slog.Logger) (*DirKeySource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DirKeySource{
		dir: dir,
		log: logger.With("component", "firebase-certs", "dir", dir),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DirKeySource) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return key, nil
}

// Reload re-reads every key file. A file that fails to parse aborts the
// reload and the previous key set stays in place.
func (s *DirKeySource) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read key directory '%s': %w", s.dir, err)
	}

	certs := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".pem" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("failed to read key file '%s': %w", name, err)
		}
		certs[strings.TrimSuffix(name, ".pem")] = string(data)
	}

	keys, err := parseCertificates(certs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return nil
}

// Watch starts following the directory. Changes are picked up after a short
// debounce.
func (s *DirKeySource) Watch() error {
	watcher, err := watchDir(s.dir, s.log, func() {
		if err := s.Reload(); err != nil {
			s.log.Error("failed to reload keys", "error", err)
			return
		}
		s.log.Info("reloaded keys", "count", s.count())
	})
	if err != nil {
		return fmt.Errorf("failed to watch key directory '%s': %w", s.dir, err)
	}
	s.watcher = watcher
	return nil
}

func (s *DirKeySource) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *DirKeySource) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
