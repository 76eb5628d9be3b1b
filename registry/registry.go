package registry

import (
	"time"
)

const (
	DeregisterCriticalServiceAfter = 30 * time.Second
	ServiceName                    = "webitel_bot_report_exporter"
	CheckInterval                  = 1 * time.Minute
)

// ServiceRegistrator manages the service entry in the discovery backend.
type ServiceRegistrator interface {
	Register() error
	Deregister() error
}

// Noop is used when no discovery backend is configured.
type Noop struct{}

func (Noop) Register() error   { return nil }
func (Noop) Deregister() error { return nil }
