package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// FileConfig configures the JSON-lines file destination
type FileConfig struct {
	Path       string
	MaxSizeMB  int // 0 disables rotation
	MaxBackups int
}

// FileShipper appends one JSON document per line
type FileShipper struct {
	cfg  *FileConfig
	file *os.File // nil after a failed reopen; the next Ship retries
	mu   sync.Mutex
	open func(path string) (*os.File, error)
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// NewFileShipper opens (or creates) the target file for appending
func NewFileShipper(cfg *FileConfig) (*FileShipper, error) {
	file, err := openAppend(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileShipper{cfg: cfg, file: file, open: openAppend}, nil
}

// Ship writes entry as a single line, rotating first when the file is over its size limit
func (fs *FileShipper) Ship(_ context.Context, entry *LogEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		if err := fs.reopen(); err != nil {
			return fmt.Errorf("failed to reopen audit log file: %w", err)
		}
	}

	if fs.cfg.MaxSizeMB > 0 {
		info, err := fs.file.Stat()
		if err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)*1024*1024 {
			if err := fs.rotate(); err != nil {
				slog.Error("failed to rotate audit log file", "error", err, "path", fs.cfg.Path)
			}
		}
	}
	if fs.file == nil {
		return fmt.Errorf("audit log file %s is not open", fs.cfg.Path)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and reopens it. When the
// reopen fails fs.file is left nil rather than pointing at the closed handle.
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}
	fs.file = nil

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fs.cfg.Path, i), fmt.Sprintf("%s.%d", fs.cfg.Path, i+1))
	}
	_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")

	if fs.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups+1))
	}

	return fs.reopen()
}

func (fs *FileShipper) reopen() error {
	file, err := fs.open(fs.cfg.Path)
	if err != nil {
		return err
	}
	fs.file = file
	return nil
}

// Close closes the file
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	return fs.file.Close()
}
