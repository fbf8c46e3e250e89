package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type LocalDisk struct {
	BaseDir string
}

func NewLocalDisk(baseDir string) *LocalDisk {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalDisk{BaseDir: baseDir}
}

func (d *LocalDisk) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return data, nil
}

func (d *LocalDisk) Put(ctx context.Context, objectPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

func (d *LocalDisk) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}

// resolve keeps object paths inside BaseDir.
func (d *LocalDisk) resolve(objectPath string) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", errors.New("empty object path")
	}
	cleaned := filepath.Clean("/" + filepath.FromSlash(objectPath))
	return filepath.Join(d.BaseDir, cleaned), nil
}
