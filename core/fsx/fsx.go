package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var ErrExists = errors.New("destination already exists")

// WriteFileAtomic replaces path with content through a synced temp file in
// the same directory. Missing parent directories are created.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tempPath, err := writeTemp(parent, filepath.Base(path), content, mode)
	if err != nil {
		return err
	}
	if err := replace(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	syncDir(parent)
	return nil
}

// WriteFileNew behaves like WriteFileAtomic but refuses to replace an
// existing file unless overwrite is set.
func WriteFileNew(path string, content []byte, mode os.FileMode, overwrite bool) error {
	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat destination: %w", err)
		}
	}
	return WriteFileAtomic(path, content, mode)
}

func writeTemp(dir, base string, content []byte, mode os.FileMode) (string, error) {
	tempFile, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	fail := func(step string, cause error) (string, error) {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("%s temp file: %w", step, cause)
	}
	if _, err := tempFile.Write(content); err != nil {
		return fail("write", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		return fail("chmod", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tempPath, nil
}

func replace(tempPath, path string) error {
	err := os.Rename(tempPath, path)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" {
		return fmt.Errorf("rename temp file: %w", err)
	}
	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("remove destination before rename: %w", removeErr)
	}
	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		return fmt.Errorf("rename temp file after remove: %w", renameErr)
	}
	return nil
}

func syncDir(dir string) {
	// #nosec G304 -- dir is the parent of a caller supplied destination.
	if handle, err := os.Open(dir); err == nil {
		_ = handle.Sync()
		_ = handle.Close()
	}
}
