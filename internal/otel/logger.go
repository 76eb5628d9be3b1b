package logging

import (
	"context"
	"log/slog"
	"os"

	slogutil "github.com/webitel/webitel-go-kit/infra/otel/log/bridge/slog"
	otelsdk "github.com/webitel/webitel-go-kit/infra/otel/sdk"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/sdk/resource"

	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/log/otlp"
	_ "github.com/webitel/webitel-go-kit/infra/otel/sdk/log/stdout"
)

// LevelEnv names the variable holding the minimum log level.
const LevelEnv = "OTEL_LOG_LEVEL"

// Level parses the level in LevelEnv, falling back to info.
func Level() slog.Level {
	level := slog.LevelInfo
	if input := os.Getenv(LevelEnv); input != "" {
		_ = level.UnmarshalText([]byte(input))
	}
	return level
}

// Setup routes slog.Default through OpenTelemetry for service and returns the
// shutdown func flushing the exporters.
func Setup(service *resource.Resource) func(context.Context) error {
	var verbose slog.LevelVar
	verbose.Set(Level())

	ctx := context.Background()
	shutdown, err := otelsdk.Configure(
		ctx,
		otelsdk.WithResource(service),
		otelsdk.WithLogBridge(func() {
			slog.SetDefault(slog.New(
				slogutil.WithLevel(
					&verbose,
					otelslog.NewHandler("report_exporter"),
				),
			))
		}),
	)

	log := slog.Default()
	if err != nil {
		log.ErrorContext(ctx, "report_exporter.otel.setup_failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.InfoContext(ctx, "report_exporter.otel.setup_complete", slog.String("level", verbose.Level().String()))

	return shutdown
}
