package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileWriter is an io.WriteCloser that moves the current file to
// path.1 (shifting older backups up to path.N) once maxSizeBytes is reached.
type RotatingFileWriter struct {
	mu           sync.Mutex
	path         string
	maxSizeBytes int64
	maxBackups   int
	file         *os.File
	size         int64
}

func NewRotatingFileWriter(path string, maxSizeBytes int64, maxBackups int) (*RotatingFileWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if maxSizeBytes <= 0 {
		return nil, fmt.Errorf("maxSizeBytes must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &RotatingFileWriter{
		path:         path,
		maxSizeBytes: maxSizeBytes,
		maxBackups:   max(maxBackups, 0),
	}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	if w.size > w.maxSizeBytes {
		if err := w.rotateLocked(); err != nil {
			_ = w.file.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// A single oversized record still lands in an empty file.
	if w.size > 0 && w.size+int64(len(p)) > w.maxSizeBytes {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) open(mode int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.file = f
	w.size = 0
	if mode == os.O_APPEND {
		if stat, err := f.Stat(); err == nil {
			w.size = stat.Size()
		}
	}
	return nil
}

func (w *RotatingFileWriter) rotateLocked() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	if w.maxBackups == 0 {
		if err := removeIfExists(w.path); err != nil {
			return err
		}
	} else if err := w.shiftBackups(); err != nil {
		return err
	}

	return w.open(os.O_TRUNC)
}

// shiftBackups renames path.(i) to path.(i+1) from the oldest down, dropping
// path.(maxBackups), and finally moves the live file to path.1.
func (w *RotatingFileWriter) shiftBackups() error {
	if err := removeIfExists(w.backup(w.maxBackups)); err != nil {
		return err
	}
	for idx := w.maxBackups - 1; idx >= 1; idx-- {
		if err := renameIfExists(w.backup(idx), w.backup(idx+1)); err != nil {
			return err
		}
	}
	return renameIfExists(w.path, w.backup(1))
}

func (w *RotatingFileWriter) backup(idx int) string {
	return fmt.Sprintf("%s.%d", w.path, idx)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func renameIfExists(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := removeIfExists(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}
