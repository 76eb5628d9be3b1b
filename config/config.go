package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

type AppConfig struct {
	File     string          `json:"-"`
	Consul   *ConsulConfig   `json:"consul,omitempty"`
	Redis    *RedisConfig    `json:"redis,omitempty"`
	Database *DatabaseConfig `json:"database,omitempty"`
	HTTP     *HTTPConfig     `json:"http,omitempty"`
	Export   *ExportConfig   `json:"export,omitempty"`
	Delivery *DeliveryConfig `json:"delivery,omitempty"`
	Archive  *ArchiveConfig  `json:"archive,omitempty"`
	Records  *RecordsConfig  `json:"records,omitempty"`
}

// ConsulConfig is optional: registration is skipped without an address.
type ConsulConfig struct {
	Id            string `json:"id"`
	Address       string `json:"address"`
	PublicAddress string `json:"publicAddress"`
}

func (c *ConsulConfig) Enabled() bool { return c != nil && c.Address != "" }

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DatabaseConfig struct {
	Url string `json:"url"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type ExportConfig struct {
	Workers  int    `json:"workers"`
	Quoting  bool   `json:"quoting"`
	Language string `json:"language"`
}

type DeliveryConfig struct {
	Backend   string `json:"backend"`
	Dir       string `json:"dir"`
	Bucket    string `json:"bucket"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

type ArchiveConfig struct {
	Source       string        `json:"source"`
	Prefix       string        `json:"prefix"`
	Concurrency  int           `json:"concurrency"`
	FetchRetries uint64        `json:"fetchRetries"`
	FetchBackoff time.Duration `json:"fetchBackoff"`
}

type RecordsConfig struct {
	Source string `json:"source"`
}

const (
	RecordsSample   = "sample"
	RecordsPostgres = "postgres"
)

var (
	deliveryBackends = []string{"filesystem", "memory", "s3"}
	archiveSources   = []string{"placeholder", "rendered", "storage"}
	recordSources    = []string{RecordsSample, RecordsPostgres}
)

func LoadConfig() (*AppConfig, error) {
	bindFlagsAndEnv()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg := buildAppConfig(configFile)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindFlagsAndEnv() {
	pflag.String("config_file", "", "Configuration file in JSON format")

	// database
	pflag.String("data_source", "", "Data source")

	// consul
	pflag.String("id", "", "Service id")
	pflag.String("consul", "", "Host to consul")
	pflag.String("public_addr", "", "Public HTTP address with port, registered in consul")

	// http
	pflag.String("http_addr", ":8080", "HTTP listen address")

	// redis
	pflag.String("redis_addr", "localhost:6379", "Redis address")
	pflag.String("redis_password", "", "Redis password")
	pflag.Int("redis_db", 0, "Redis DB number")

	// export
	pflag.Int("workers", 4, "Number of concurrent export workers")
	pflag.Bool("csv_quoting", false, "Quote CSV/TXT values containing delimiters")
	pflag.String("language", "en-us", "Language of user notices")

	// delivery
	pflag.String("delivery_backend", "filesystem", "Delivery backend: filesystem, memory or s3")
	pflag.String("delivery_dir", "./exports", "Directory for the filesystem backend")
	pflag.String("s3_bucket", "", "S3 bucket")
	pflag.String("s3_endpoint", "", "S3 endpoint override")
	pflag.String("s3_region", "", "S3 region")
	pflag.String("s3_access_key", "", "S3 access key")
	pflag.String("s3_secret_key", "", "S3 secret key")

	// archive
	pflag.String("archive_source", "placeholder", "Archive document source: placeholder, rendered or storage")
	pflag.String("archive_prefix", "documents", "Object prefix of stored documents")
	pflag.Int("archive_concurrency", 4, "Documents fetched at once")
	pflag.Uint64("archive_fetch_retries", 2, "Retries of a failed document fetch")
	pflag.Duration("archive_fetch_backoff", 200*time.Millisecond, "Pause between document fetch retries")

	// records
	pflag.String("records_source", RecordsSample, "Upload records source: sample or postgres")

	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit mapping
	_ = viper.BindEnv("id", "CONSUL_ID")
	_ = viper.BindEnv("consul", "CONSUL_HOST")
	_ = viper.BindEnv("public_addr", "PUBLIC_ADDR")
	_ = viper.BindEnv("http_addr", "HTTP_ADDR")
	_ = viper.BindEnv("data_source", "DATA_SOURCE")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis_db", "REDIS_DB")
	_ = viper.BindEnv("s3_access_key", "AWS_ACCESS_KEY_ID")
	_ = viper.BindEnv("s3_secret_key", "AWS_SECRET_ACCESS_KEY")
}

func getConfigFilePath() string {
	file := viper.GetString("config_file")
	if file == "" {
		file = os.Getenv("REPORT_EXPORTER_CONFIG_FILE")
	}
	return file
}

func loadFromFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return errors.New(fmt.Sprintf("could not load config file: %s", err.Error()))
	}
	return nil
}

func buildAppConfig(file string) *AppConfig {
	return &AppConfig{
		File:     file,
		Database: &DatabaseConfig{Url: viper.GetString("data_source")},
		HTTP:     &HTTPConfig{Addr: viper.GetString("http_addr")},
		Export: &ExportConfig{
			Workers:  viper.GetInt("workers"),
			Quoting:  viper.GetBool("csv_quoting"),
			Language: viper.GetString("language"),
		},
		Consul: &ConsulConfig{
			Id:            viper.GetString("id"),
			Address:       viper.GetString("consul"),
			PublicAddress: viper.GetString("public_addr"),
		},
		Redis: &RedisConfig{
			Addr:     viper.GetString("redis_addr"),
			Password: viper.GetString("redis_password"),
			DB:       viper.GetInt("redis_db"),
		},
		Delivery: &DeliveryConfig{
			Backend:   viper.GetString("delivery_backend"),
			Dir:       viper.GetString("delivery_dir"),
			Bucket:    viper.GetString("s3_bucket"),
			Endpoint:  viper.GetString("s3_endpoint"),
			Region:    viper.GetString("s3_region"),
			AccessKey: viper.GetString("s3_access_key"),
			SecretKey: viper.GetString("s3_secret_key"),
		},
		Archive: &ArchiveConfig{
			Source:       viper.GetString("archive_source"),
			Prefix:       viper.GetString("archive_prefix"),
			Concurrency:  viper.GetInt("archive_concurrency"),
			FetchRetries: viper.GetUint64("archive_fetch_retries"),
			FetchBackoff: viper.GetDuration("archive_fetch_backoff"),
		},
		Records: &RecordsConfig{Source: viper.GetString("records_source")},
	}
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Database.Url == "" {
		return errors.New("Data source is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("Redis address is required")
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("HTTP address is required")
	}
	if cfg.Consul.Enabled() {
		if cfg.Consul.Id == "" {
			return errors.New("Service id is required")
		}
		if cfg.Consul.PublicAddress == "" {
			return errors.New("Public address is required")
		}
	}
	if !slices.Contains(deliveryBackends, cfg.Delivery.Backend) {
		return errors.New(fmt.Sprintf("Unknown delivery backend %q", cfg.Delivery.Backend))
	}
	if cfg.Delivery.Backend == "filesystem" && cfg.Delivery.Dir == "" {
		return errors.New("Delivery directory is required")
	}
	if cfg.Delivery.Backend == "s3" && cfg.Delivery.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	if !slices.Contains(archiveSources, cfg.Archive.Source) {
		return errors.New(fmt.Sprintf("Unknown archive source %q", cfg.Archive.Source))
	}
	if !slices.Contains(recordSources, cfg.Records.Source) {
		return errors.New(fmt.Sprintf("Unknown records source %q", cfg.Records.Source))
	}
	return nil
}
