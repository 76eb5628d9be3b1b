package consul

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	conf "github.com/webitel/bot-report-exporter/config"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/registry"
)

// Compile-time check to verify implements interface.
var _ registry.ServiceRegistrator = (*ConsulRegistry)(nil)

// ConsulRegistry registers the exporter under a TTL check and keeps it passing
// until Deregister.
type ConsulRegistry struct {
	registration *consulapi.AgentServiceRegistration
	client       *consulapi.Client
	checkID      string
	stop         chan struct{}
	stopOnce     sync.Once
	log          *slog.Logger
}

// Registration builds the consul service entry for config.
func Registration(config *conf.ConsulConfig) (*consulapi.AgentServiceRegistration, error) {
	if config.Id == "" {
		return nil, errors.InvalidArgument(
			"service id is empty! (set it by '-id' flag)",
			errors.WithID("consul.registry.check_args.service_id"),
		)
	}
	host, port, err := net.SplitHostPort(config.PublicAddress)
	if err != nil {
		return nil, errors.InvalidArgument(
			fmt.Sprintf("unable to parse public address %q", config.PublicAddress),
			errors.WithCause(err),
			errors.WithID("consul.registry.parse_address.error"),
		)
	}
	parsedPort, err := strconv.Atoi(port)
	if err != nil {
		return nil, errors.InvalidArgument(
			fmt.Sprintf("unable to parse port %q", port),
			errors.WithCause(err),
			errors.WithID("consul.registry.parse_port.error"),
		)
	}
	return &consulapi.AgentServiceRegistration{
		ID:      config.Id,
		Name:    registry.ServiceName,
		Port:    parsedPort,
		Address: host,
		Check: &consulapi.AgentServiceCheck{
			DeregisterCriticalServiceAfter: registry.DeregisterCriticalServiceAfter.String(),
			TTL:                            registry.CheckInterval.String(),
		},
	}, nil
}

func NewConsulRegistry(config *conf.ConsulConfig, log *slog.Logger) (*ConsulRegistry, error) {
	reg, err := Registration(config)
	if err != nil {
		return nil, err
	}
	consulConfig := consulapi.DefaultConfig()
	consulConfig.Address = config.Address
	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		return nil, errors.Internal(
			err.Error(),
			errors.WithID("consul.registry.client.error"),
		)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ConsulRegistry{
		registration: reg,
		client:       client,
		stop:         make(chan struct{}),
		log:          log.With(slog.String("registry", "consul")),
	}, nil
}

func (c *ConsulRegistry) Register() error {
	if err := c.client.Agent().ServiceRegister(c.registration); err != nil {
		return errors.Internal(
			err.Error(),
			errors.WithID("consul.registry.register.error"),
		)
	}
	checks, err := c.client.Agent().Checks()
	if err != nil {
		return errors.Internal(
			err.Error(),
			errors.WithID("consul.registry.register.get_checks.error"),
		)
	}
	for _, check := range checks {
		if check.ServiceID == c.registration.ID {
			c.checkID = check.CheckID
		}
	}
	if c.checkID == "" {
		return errors.Internal(
			"service check not found",
			errors.WithID("consul.registry.register.check_missing"),
		)
	}
	go c.heartbeat()
	return nil
}

func (c *ConsulRegistry) Deregister() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if err := c.client.Agent().ServiceDeregister(c.registration.ID); err != nil {
		return errors.Internal(
			err.Error(),
			errors.WithID("consul.registry.deregister.error"),
		)
	}
	c.log.Info("service was deregistered", slog.String("id", c.registration.ID))
	return nil
}

func (c *ConsulRegistry) passTTL() {
	if err := c.client.Agent().UpdateTTL(c.checkID, "success", consulapi.HealthPassing); err != nil {
		c.log.Error("failed to complete regular check-in", slog.Any("error", err))
	}
}

// heartbeat passes the TTL check at half its interval until stopped.
func (c *ConsulRegistry) heartbeat() {
	c.passTTL()
	c.log.Info("started service checker", slog.String("check", c.checkID))
	defer c.log.Info("stopped service checker")

	ticker := time.NewTicker(registry.CheckInterval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.passTTL()
		}
	}
}
