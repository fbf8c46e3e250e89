package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammadpnp/member-import/internal/config"
)

var (
	ErrUnknownDisk    = errors.New("unknown storage disk")
	ErrObjectNotFound = errors.New("object not found")
)

// Disk is one named storage backend.
type Disk interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}

// Manager routes object operations to named disks.
type Manager struct {
	disks       map[string]Disk
	defaultDisk string
}

func NewManager(defaultDisk string, disks map[string]Disk) *Manager {
	return &Manager{disks: disks, defaultDisk: defaultDisk}
}

// NewManagerFromConfig builds every configured disk.
func NewManagerFromConfig(cfg config.StorageConfig) (*Manager, error) {
	disks := make(map[string]Disk, len(cfg.Disks))
	for name, dc := range cfg.Disks {
		switch dc.Driver {
		case "", "local":
			disks[name] = NewLocalDisk(dc.Root)
		case "s3":
			disk, err := NewS3Disk(dc)
			if err != nil {
				return nil, fmt.Errorf("storage disk %s: %w", name, err)
			}
			disks[name] = disk
		default:
			return nil, fmt.Errorf("storage disk %s: unsupported driver %q", name, dc.Driver)
		}
	}
	return NewManager(cfg.DefaultDisk, disks), nil
}

func (m *Manager) DefaultDisk() string {
	return m.defaultDisk
}

func (m *Manager) Get(ctx context.Context, path, disk string) ([]byte, error) {
	d, err := m.disk(disk)
	if err != nil {
		return nil, err
	}
	return d.Get(ctx, path)
}

func (m *Manager) Put(ctx context.Context, path, disk string, data []byte) error {
	d, err := m.disk(disk)
	if err != nil {
		return err
	}
	return d.Put(ctx, path, data)
}

func (m *Manager) Delete(ctx context.Context, path, disk string) error {
	d, err := m.disk(disk)
	if err != nil {
		return err
	}
	return d.Delete(ctx, path)
}

func (m *Manager) disk(name string) (Disk, error) {
	if name == "" {
		name = m.defaultDisk
	}
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDisk, name)
	}
	return d, nil
}
