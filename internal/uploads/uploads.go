// Package uploads manages the on-disk file store for item photos, avatars
// and chat images, with a public /uploads URL space mapped onto it.
package uploads

import (
	"fmt"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"time"

	"market-service/internal/util"

	"go.uber.org/zap"
)

// Subdirectories of the uploads root.
const (
	SubdirItems    = "items"
	SubdirAvatars  = "avatars"
	SubdirMessages = "messages"
)

// Store writes uploaded files under a base directory and hands out their
// public URLs.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// ResolveWritableDir picks the first candidate under which an "uploads"
// directory can be created. Empty candidates are skipped.
func ResolveWritableDir(candidates []string) (string, error) {
	for _, base := range candidates {
		if base == "" {
			continue
		}
		dir := filepath.Join(base, "uploads")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no writable uploads directory among %d candidates", len(candidates))
}

// NewStore creates the store rooted at baseDir, ensuring the known
// subdirectories exist.
func NewStore(baseDir string) (*Store, error) {
	for _, sub := range []string{SubdirItems, SubdirAvatars, SubdirMessages} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create uploads subdir %s: %w", sub, err)
		}
	}
	return &Store{baseDir: baseDir, logger: util.GetLogger()}, nil
}

// BaseDir returns the directory served as /uploads.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save writes data into the given subdirectory under a collision-resistant
// generated name and returns the public URL path.
func (s *Store) Save(subdir, prefix, ext string, data []byte) (string, error) {
	filename := fmt.Sprintf("%s-%d-%d%s", prefix, time.Now().UnixMilli(), rand.Int63n(1_000_000_000), ext)
	absPath := filepath.Join(s.baseDir, subdir, filename)

	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path.Join("uploads", subdir, filename), nil
}

// Remove deletes a previously saved file by its public URL path. Missing
// files are not an error; this is cleanup after a failed insert.
func (s *Store) Remove(publicPath string) {
	rel, ok := trimUploadsPrefix(publicPath)
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove upload", zap.String("path", publicPath), zap.Error(err))
	}
}

func trimUploadsPrefix(p string) (string, bool) {
	const prefix = "uploads/"
	if len(p) > len(prefix) && p[:len(prefix)] == prefix {
		return p[len(prefix):], true
	}
	return "", false
}
