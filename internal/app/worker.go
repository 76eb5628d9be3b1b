package app

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	cache "github.com/webitel/bot-report-exporter/internal/cache/redis"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

const DefaultWorkers = 4

// popErrorPause throttles the loop while the queue backend is failing.
const popErrorPause = time.Second

// WorkerCount limits the configured worker count to twice the CPU cores.
func WorkerCount(configured int) int {
	n := configured
	if n <= 0 {
		n = DefaultWorkers
	}
	if maxWorkers := runtime.NumCPU() * 2; n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// StartExportWorker launches background workers that process queued export tasks.
func (app *App) StartExportWorker(ctx context.Context) {
	numWorkers := WorkerCount(app.Config.Export.Workers)
	app.log.InfoContext(ctx, "starting export workers", "count", numWorkers)

	for i := 0; i < numWorkers; i++ {
		go app.runWorker(ctx, i+1)
	}
}

func (app *App) runWorker(ctx context.Context, workerID int) {
	log := app.log.With(slog.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := app.Cache.PopExportTask(ctx)
		if err != nil {
			if errors.Is(err, cache.ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			log.ErrorContext(ctx, "pop export task", slog.Any("error", err))
			time.Sleep(popErrorPause)
			continue
		}

		if err := app.Service.Process(ctx, task); err != nil {
			log.ErrorContext(ctx, "export task failed",
				slog.String("task_id", task.TaskID),
				slog.String("type", string(task.Type)),
				slog.String("error", errors.Details(err)),
			)
			continue
		}
		log.InfoContext(ctx, "export task done", slog.String("task_id", task.TaskID))
	}
}
