package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	conf "github.com/webitel/bot-report-exporter/config"
	"github.com/webitel/bot-report-exporter/internal/app"
	"github.com/webitel/bot-report-exporter/internal/domain/model"
	logging "github.com/webitel/bot-report-exporter/internal/otel"

	// ------------ logging ------------ //
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	// -------------------- plugin(s) -------------------- //
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/log/otlp"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/log/stdout"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/metric/otlp"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/metric/stdout"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/trace/otlp"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/trace/stdout"
)

// Run loads the configuration, starts the exporter and blocks until it is
// stopped by a signal or fails.
func Run() int {
	config, err := conf.LoadConfig()
	if err != nil {
		slog.Error("report_exporter.main.configuration_error", slog.String("error", err.Error()))
		return 1
	}

	// slog + OTEL logging
	service := resource.NewSchemaless(
		semconv.ServiceName(model.AppServiceName),
		semconv.ServiceVersion(model.CurrentVersion),
		semconv.ServiceInstanceID(instanceID(config)),
		semconv.ServiceNamespace(model.NamespaceName),
	)
	shutdown := logging.Setup(service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(ctx, config, shutdown)
	if err != nil {
		slog.Error("report_exporter.main.application_initialization_error", slog.String("error", err.Error()))
		return 1
	}

	slog.Debug("report_exporter.main.configuration_loaded",
		slog.String("http_address", config.HTTP.Addr),
		slog.String("consul", config.Consul.Address),
		slog.String("delivery_backend", config.Delivery.Backend),
		slog.String("records_source", config.Records.Source),
	)

	slog.Info("report_exporter.main.starting_application")
	startErr := application.Start(ctx)
	if startErr != nil {
		slog.Error("report_exporter.main.application_start_error", slog.String("error", startErr.Error()))
	} else {
		slog.Info("report_exporter.main.received_stop_signal")
	}

	_ = application.Stop()
	if startErr != nil {
		return 1
	}
	return 0
}

func instanceID(config *conf.AppConfig) string {
	if config.Consul.Id != "" {
		return config.Consul.Id
	}
	host, _ := os.Hostname()
	return host
}
