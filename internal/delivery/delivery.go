// Package delivery hands finished exports to a file destination.
package delivery

import (
	"context"
	"fmt"
	"log/slog"

	conf "github.com/webitel/bot-report-exporter/config"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

// Backend identifies a delivery destination.
type Backend string

const (
	BackendFilesystem Backend = "filesystem"
	BackendMemory     Backend = "memory"
	BackendS3         Backend = "s3"
	BackendAttachment Backend = "attachment"
)

// Deliverer writes a named file and reports where it landed.
type Deliverer interface {
	// Deliver stores data under name, overwriting any previous file of that name.
	Deliver(ctx context.Context, name, mimeType string, data []byte) (location string, err error)

	Backend() Backend
}

// Store is a Deliverer whose files can be read back.
type Store interface {
	Deliverer
	Read(ctx context.Context, name string) ([]byte, error)
}

// New builds the store selected by config.
func New(ctx context.Context, config *conf.DeliveryConfig) (Store, error) {
	slog.InfoContext(ctx, "delivery.backend.selected", slog.String("backend", config.Backend))

	switch Backend(config.Backend) {
	case BackendFilesystem:
		return NewFilesystem(config.Dir)
	case BackendMemory:
		return NewMemory(), nil
	case BackendS3:
		return NewS3(ctx, config)
	default:
		return nil, errors.InvalidArgument(
			fmt.Sprintf("unknown delivery backend %q", config.Backend),
			errors.WithID("delivery.backend.unknown"),
		)
	}
}

func deliveryError(name string, backend Backend, err error) error {
	return &errors.DeliveryError{Name: name, Backend: string(backend), Err: err}
}
