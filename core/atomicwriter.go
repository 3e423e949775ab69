package core

import (
	"fmt"
	"io/fs"
	"os"
	"time"
)

// AtomicWriter persists a transformed buffer without ever exposing a
// half-written file: content goes to a temporary file first, then an atomic
// rename replaces the original. One invocation owns the target file
// exclusively, so there is no lock registry here.
type AtomicWriter struct {
	tempSuffix string
	backup     bool
}

// NewAtomicWriter returns a writer, optionally keeping a timestamped backup
// of the original before each write.
func NewAtomicWriter(backup bool) *AtomicWriter {
	return &AtomicWriter{tempSuffix: ".retrofit.tmp", backup: backup}
}

// WriteFile atomically replaces path with content, preserving its mode.
func (w *AtomicWriter) WriteFile(path, content string) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}

	if w.backup {
		if err := w.createBackup(path); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
	}

	tempPath := path + w.tempSuffix
	if err := os.WriteFile(tempPath, []byte(content), mode); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func (w *AtomicWriter) createBackup(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	timestamp := time.Now().Format("20060102-150405")
	return os.WriteFile(fmt.Sprintf("%s.bak.%s", path, timestamp), content, 0o644)
}
