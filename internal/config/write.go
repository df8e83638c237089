package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	renameAttempts = 10
	// Windows may hold the target briefly (indexers, antivirus). Each retry
	// waits attempt * renameStep.
	renameStep = 10 * time.Millisecond
)

var renameFn = os.Rename

// atomicWrite replaces path with data through a 0600 temp file in the same
// directory. A failure at any step leaves the previous file untouched and
// removes the temp file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+configFileName+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		discardTemp(tmpPath)
		return err
	}
	if err := renameWithRetry(tmpPath, path); err != nil {
		discardTemp(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	err := f.Chmod(0o600)
	if err == nil {
		_, err = f.Write(data)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return nil
}

func discardTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[WARN-CONFIG] leftover temp file", "path", path, "error", err)
	}
}

func renameWithRetry(from, to string) error {
	err := renameFn(from, to)
	for attempt := 1; err != nil && runtime.GOOS == "windows" && attempt < renameAttempts; attempt++ {
		time.Sleep(time.Duration(attempt) * renameStep)
		err = renameFn(from, to)
	}
	return err
}

// readLimitedFile reads path and fails when it is larger than limit bytes.
func readLimitedFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("config file exceeds %d bytes", limit)
	}
	return raw, nil
}
