// Package uploads stores replay files on local disk and prunes old ones.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAge is how long an uploaded file is kept before Cleanup removes it.
const DefaultMaxAge = 24 * time.Hour

var ErrInvalidName = errors.New("invalid file name")

// StoredFile describes a file written by Save.
type StoredFile struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	SavedAt      time.Time `json:"savedAt"`
}

// CleanupResult reports what a Cleanup pass did.
type CleanupResult struct {
	DeletedFiles []string `json:"deletedFiles"`
	DeletedCount int      `json:"deletedCount"`
	TotalFiles   int      `json:"totalFiles"`
	Errors       int      `json:"errors"`
}

// FileInfo is a named file with its modification time.
type FileInfo struct {
	Name     string    `json:"name"`
	Modified time.Time `json:"date"`
}

// DirStats summarizes the upload directory.
type DirStats struct {
	TotalFiles int       `json:"totalFiles"`
	TotalSize  int64     `json:"totalSize"`
	OldestFile *FileInfo `json:"oldestFile"`
	NewestFile *FileInfo `json:"newestFile"`
}

// Store is a flat directory of uploaded replays.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the upload directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

// Path returns the on-disk path for a stored file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save writes r under a fresh unique name that keeps the extension of
// originalName. A partially written file is removed on error.
func (s *Store) Save(originalName string, r io.Reader) (StoredFile, error) {
	base := filepath.Base(originalName)
	if base == "." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return StoredFile{}, ErrInvalidName
	}
	if err := s.EnsureDir(); err != nil {
		return StoredFile{}, err
	}

	now := s.now()
	name := strconv.FormatInt(now.UnixMilli(), 10) + "_" + uuid.NewString() + strings.ToLower(filepath.Ext(base))
	path := s.Path(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("write %s: %w", name, err)
	}

	return StoredFile{Name: name, OriginalName: base, Size: n, SavedAt: now}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(filepath.Base(name))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Cleanup deletes regular files whose modification time is more than maxAge
// ago. Per-file failures are counted and skipped. A missing directory is empty.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (CleanupResult, error) {
	res := CleanupResult{DeletedFiles: []string{}}

	entries, err := s.list()
	if err != nil {
		return res, err
	}
	res.TotalFiles = len(entries)

	cutoff := s.now().Add(-maxAge)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		info, err := e.Info()
		if err != nil {
			res.Errors++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(s.Path(e.Name())); err != nil {
			res.Errors++
			continue
		}
		res.DeletedFiles = append(res.DeletedFiles, e.Name())
		res.DeletedCount++
	}
	return res, nil
}

// Stats reports file count, total size, and the oldest and newest files.
func (s *Store) Stats() (DirStats, error) {
	var st DirStats

	entries, err := s.list()
	if err != nil {
		return st, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.TotalFiles++
		st.TotalSize += info.Size()
		mod := info.ModTime()
		if st.OldestFile == nil || mod.Before(st.OldestFile.Modified) {
			st.OldestFile = &FileInfo{Name: e.Name(), Modified: mod}
		}
		if st.NewestFile == nil || mod.After(st.NewestFile.Modified) {
			st.NewestFile = &FileInfo{Name: e.Name(), Modified: mod}
		}
	}
	return st, nil
}

func (s *Store) list() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	files := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e)
		}
	}
	return files, nil
}
