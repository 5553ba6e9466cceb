package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const scratchPattern = "familyphotos-export-*.zip"

// DefaultScratchDir is an app-owned directory under the OS temp dir, used
// when no scratch directory is configured.
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), "familyphotos-exports")
}

// Entry is one file in an archive. Open is called once, while the archive is
// being written.
type Entry struct {
	Name     string
	Modified time.Time
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// WriteArchive writes entries to w as a zip in the given order. Entries are
// stored uncompressed since photos are already compressed.
func WriteArchive(ctx context.Context, w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEntry(ctx, zw, entry); err != nil {
			return fmt.Errorf("add %s: %w", entry.Name, err)
		}
	}
	return zw.Close()
}

func writeEntry(ctx context.Context, zw *zip.Writer, entry Entry) error {
	src, err := entry.Open(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Store,
		Modified: entry.Modified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

// Scratch is an archive assembled on disk before it is streamed. Close
// removes it and is safe to call more than once.
type Scratch struct {
	path string
	size int64
}

// BuildScratch writes entries to a new file in dir. On any failure the
// partial file is removed before returning.
func BuildScratch(ctx context.Context, dir string, entries []Entry) (*Scratch, error) {
	if dir == "" {
		dir = DefaultScratchDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	f, err := os.CreateTemp(dir, scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	scratch := &Scratch{path: f.Name()}

	if err := WriteArchive(ctx, f, entries); err != nil {
		f.Close()
		scratch.Close()
		return nil, err
	}
	info, err := f.Stat()
	if err == nil {
		err = f.Close()
	} else {
		f.Close()
	}
	if err != nil {
		scratch.Close()
		return nil, fmt.Errorf("finish scratch file: %w", err)
	}
	scratch.size = info.Size()

	return scratch, nil
}

func (s *Scratch) Path() string { return s.path }

func (s *Scratch) Size() int64 { return s.size }

func (s *Scratch) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s *Scratch) Close() error {
	if s == nil || s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SweepScratch removes scratch archives in dir last modified before cutoff.
// They are only left behind when the process died mid-export.
func SweepScratch(dir string, cutoff time.Time) (int, error) {
	if dir == "" {
		dir = DefaultScratchDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, scratchPattern))
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".zip") {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
