package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	conf "github.com/webitel/bot-report-exporter/config"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/registry"
	"google.golang.org/grpc/codes"
)

func TestRegistration(t *testing.T) {
	reg, err := Registration(&conf.ConsulConfig{Id: "exporter-1", Address: "consul:8500", PublicAddress: "10.0.0.5:8080"})
	require.NoError(t, err)

	assert.Equal(t, "exporter-1", reg.ID)
	assert.Equal(t, registry.ServiceName, reg.Name)
	assert.Equal(t, "10.0.0.5", reg.Address)
	assert.Equal(t, 8080, reg.Port)
	assert.Equal(t, "1m0s", reg.Check.TTL)
	assert.Equal(t, "30s", reg.Check.DeregisterCriticalServiceAfter)
}

func TestRegistrationInvalid(t *testing.T) {
	tests := map[string]*conf.ConsulConfig{
		"no id":    {Address: "consul:8500", PublicAddress: "10.0.0.5:8080"},
		"no port":  {Id: "exporter-1", PublicAddress: "10.0.0.5"},
		"bad port": {Id: "exporter-1", PublicAddress: "10.0.0.5:http"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Registration(cfg)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, errors.Code(err))
		})
	}
}
