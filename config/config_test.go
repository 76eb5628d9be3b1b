package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Database: &DatabaseConfig{Url: "postgres://localhost/reports"},
		HTTP:     &HTTPConfig{Addr: ":8080"},
		Export:   &ExportConfig{Workers: 4},
		Consul:   &ConsulConfig{},
		Redis:    &RedisConfig{Addr: "localhost:6379"},
		Delivery: &DeliveryConfig{Backend: "filesystem", Dir: "./exports"},
		Archive:  &ArchiveConfig{Source: "placeholder"},
		Records:  &RecordsConfig{Source: RecordsSample},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*AppConfig)
		wantErr string
	}{
		"valid":                 {mutate: func(*AppConfig) {}},
		"missing data source":   {mutate: func(c *AppConfig) { c.Database.Url = "" }, wantErr: "Data source is required"},
		"missing redis":         {mutate: func(c *AppConfig) { c.Redis.Addr = "" }, wantErr: "Redis address is required"},
		"consul without id":     {mutate: func(c *AppConfig) { c.Consul.Address = "consul:8500" }, wantErr: "Service id is required"},
		"unknown backend":       {mutate: func(c *AppConfig) { c.Delivery.Backend = "ftp" }, wantErr: "Unknown delivery backend"},
		"s3 without bucket":     {mutate: func(c *AppConfig) { c.Delivery.Backend = "s3" }, wantErr: "S3 bucket is required"},
		"unknown archive":       {mutate: func(c *AppConfig) { c.Archive.Source = "gcs" }, wantErr: "Unknown archive source"},
		"unknown record source": {mutate: func(c *AppConfig) { c.Records.Source = "csv" }, wantErr: "Unknown records source"},
		"consul complete": {mutate: func(c *AppConfig) {
			c.Consul = &ConsulConfig{Id: "report-1", Address: "consul:8500", PublicAddress: "10.0.0.1:8080"}
		}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := validateConfig(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBuildAppConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("data_source", "postgres://db/reports")
	viper.Set("workers", 8)
	viper.Set("csv_quoting", true)
	viper.Set("delivery_backend", "s3")
	viper.Set("s3_bucket", "exports")
	viper.Set("archive_fetch_backoff", "1s")
	viper.Set("records_source", RecordsPostgres)

	cfg := buildAppConfig("config.json")

	assert.Equal(t, "config.json", cfg.File)
	assert.Equal(t, "postgres://db/reports", cfg.Database.Url)
	assert.Equal(t, 8, cfg.Export.Workers)
	assert.True(t, cfg.Export.Quoting)
	assert.Equal(t, "s3", cfg.Delivery.Backend)
	assert.Equal(t, "exports", cfg.Delivery.Bucket)
	assert.Equal(t, time.Second, cfg.Archive.FetchBackoff)
	assert.Equal(t, RecordsPostgres, cfg.Records.Source)
	assert.False(t, cfg.Consul.Enabled())
}
