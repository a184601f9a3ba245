package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// backupLayout stamps rotated files. Parsing uses the layout without the
// fraction, which time.Parse accepts either way.
const (
	backupLayout = "20060102-150405.000000000"
	backupParse  = "20060102-150405"
)

// Rotation configures a RotatingWriter
type Rotation struct {
	MaxBytes int64         // rotate before a write would pass this size
	MaxAge   time.Duration // prune backups older than this, 0 keeps all
	Compress bool          // gzip backups
}

// RotatingWriter appends to a log file and moves it aside as a timestamped
// backup when it fills. Compression and pruning run in the background after
// each rotation; Close waits for them.
type RotatingWriter struct {
	path   string
	policy Rotation
	now    func() time.Time

	mu   sync.Mutex
	file *os.File
	size int64

	background sync.WaitGroup
}

// NewRotatingWriter opens filename for appending with size and age limits
func NewRotatingWriter(filename string, maxSizeMB, maxAgeDays int, compress bool) (*RotatingWriter, error) {
	return openRotating(filename, Rotation{
		MaxBytes: int64(maxSizeMB) << 20,
		MaxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		Compress: compress,
	}, time.Now)
}

func openRotating(path string, policy Rotation, now func() time.Time) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{path: path, policy: policy, now: now}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	return nil
}

// Write appends p, rotating first if p would overflow a non-empty file
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.policy.MaxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the file and waits for pending compression and pruning
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	var err error
	if w.file != nil {
		err = w.file.Close()
		w.file = nil
	}
	w.mu.Unlock()

	w.background.Wait()
	return err
}

// rotate must be called with mu held
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backup := w.path + "." + w.now().Format(backupLayout)
	if err := os.Rename(w.path, backup); err != nil {
		// Keep logging to the full file rather than losing lines
		if openErr := w.open(); openErr != nil {
			return openErr
		}
		return err
	}
	if err := w.open(); err != nil {
		return err
	}

	w.background.Add(1)
	go func() {
		defer w.background.Done()
		if w.policy.Compress {
			// A failed gzip leaves the plain backup in place
			_ = gzipFile(backup)
		}
		w.prune()
	}()
	return nil
}

type backupFile struct {
	path    string
	rotated time.Time
}

// backups lists this writer's rotated files, oldest first. Files whose
// suffix is not a rotation stamp are not ours and are left alone.
func (w *RotatingWriter) backups() []backupFile {
	matches, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return nil
	}

	prefix := w.path + "."
	var out []backupFile
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(m, prefix), ".gz")
		rotated, err := time.ParseInLocation(backupParse, stamp, time.Local)
		if err != nil {
			continue
		}
		out = append(out, backupFile{path: m, rotated: rotated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rotated.Before(out[j].rotated) })
	return out
}

// prune removes backups rotated before now minus MaxAge. Age comes from the
// name, so touching or copying a backup does not keep it alive.
func (w *RotatingWriter) prune() {
	if w.policy.MaxAge <= 0 {
		return
	}
	cutoff := w.now().Add(-w.policy.MaxAge)
	for _, b := range w.backups() {
		if b.rotated.Before(cutoff) {
			os.Remove(b.path)
		}
	}
}

// gzipFile replaces path with path.gz
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}

	dst, err := os.Create(path + ".gz")
	if err != nil {
		src.Close()
		return err
	}

	gz := gzip.NewWriter(dst)
	_, err = io.Copy(gz, src)
	if closeErr := gz.Close(); err == nil {
		err = closeErr
	}
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	src.Close()

	if err != nil {
		os.Remove(path + ".gz")
		return err
	}
	return os.Remove(path)
}
