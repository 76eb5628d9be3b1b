package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Compile-time check to verify implements interface.
var _ Store = (*Filesystem)(nil)

// Filesystem writes files into a local directory.
type Filesystem struct {
	dir string
}

func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, fmt.Errorf("filesystem delivery: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem delivery: %w", err)
	}
	return &Filesystem{dir: dir}, nil
}

func (f *Filesystem) Backend() Backend { return BackendFilesystem }

func (f *Filesystem) Deliver(_ context.Context, name, _ string, data []byte) (string, error) {
	pth, err := f.path(name)
	if err != nil {
		return "", deliveryError(name, f.Backend(), err)
	}
	if err := os.MkdirAll(filepath.Dir(pth), 0o755); err != nil {
		return "", deliveryError(name, f.Backend(), err)
	}
	if err := os.WriteFile(pth, data, 0o644); err != nil {
		return "", deliveryError(name, f.Backend(), err)
	}
	return pth, nil
}

func (f *Filesystem) Read(_ context.Context, name string) ([]byte, error) {
	pth, err := f.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(pth)
}

// path keeps name inside the delivery directory.
func (f *Filesystem) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(f.dir, name), nil
}
