package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/webitel/bot-report-exporter/internal/cache/redis"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

const (
	testRedisAddr     = "localhost:6379"
	testRedisPassword = ""
	testRedisDB       = 15
)

func getTestCache(t *testing.T) *cache.RedisCache {
	c, err := cache.NewRedisCache(testRedisAddr, testRedisPassword, testRedisDB)
	if err != nil {
		t.Skipf("Redis is not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Failed to clear Redis DB: %v", err)
	}
	return c.WithPopWait(time.Second)
}

func TestConcurrentPushPop(t *testing.T) {
	ctx := context.Background()
	c := getTestCache(t)
	totalTasks := 1000
	numWorkers := 10

	var wg sync.WaitGroup
	processedTasks := make(chan report.ExportTask, totalTasks)
	errs := make(chan error, totalTasks)

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for {
				task, err := c.PopExportTask(ctx)
				if err != nil {
					if errors.Is(err, cache.ErrQueueEmpty) {
						return
					}
					errs <- fmt.Errorf("worker %d PopExportTask failed: %w", workerID, err)
					return
				}
				processedTasks <- task
			}
		}(i)
	}

	for i := 0; i < totalTasks; i++ {
		task := report.ExportTask{
			TaskID: fmt.Sprintf("test:%d", i),
			Type:   report.TaskTypeExport,
			Table:  report.TableFailed,
			Format: report.FormatCSV,
		}
		if err := c.PushExportTask(ctx, task); err != nil {
			t.Fatalf("Failed to push task %d: %v", i, err)
		}
	}

	collectedTasks := 0
	timeout := time.After(10 * time.Second)

	for collectedTasks < totalTasks {
		select {
		case task := <-processedTasks:
			assert.Contains(t, task.TaskID, "test:", "Processed task has incorrect TaskID format")
			assert.Equal(t, report.FormatCSV, task.Format)
			collectedTasks++
		case err := <-errs:
			t.Errorf("Error during processing: %v", err)
			return
		case <-timeout:
			t.Fatalf("Timeout waiting for all tasks to be processed. Processed: %d, Expected: %d", collectedTasks, totalTasks)
			return
		}
	}

	wg.Wait()
	assert.Equal(t, totalTasks, collectedTasks, "Not all tasks were processed")
}

func TestTaskState(t *testing.T) {
	ctx := context.Background()
	c := getTestCache(t)

	status, err := c.GetExportStatus(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, status)

	require.NoError(t, c.SetExportStatus(ctx, "t1", report.ExportStatusPending))
	require.NoError(t, c.SetExportHistoryID(ctx, "t1", 42))
	require.NoError(t, c.SetExportLocation(ctx, "t1", "memory://failed_document_uploads.csv"))

	exists, err := c.Exists(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	status, err = c.GetExportStatus(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, report.ExportStatusPending, status)

	id, err := c.GetExportHistoryID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, c.ClearExportTask(ctx, "t1"))
	_, err = c.GetExportHistoryID(ctx, "t1")
	assert.Error(t, err)

	loc, err := c.GetExportLocation(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "memory://failed_document_uploads.csv", loc)
}

func TestClaimTask(t *testing.T) {
	ctx := context.Background()
	c := getTestCache(t)

	holder, ok, err := c.ClaimTask(ctx, "export:failed:csv", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", holder)

	holder, ok, err = c.ClaimTask(ctx, "export:failed:csv", "b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "a", holder)

	require.NoError(t, c.ReleaseTask(ctx, "export:failed:csv"))
	_, ok, err = c.ClaimTask(ctx, "export:failed:csv", "b")
	require.NoError(t, err)
	assert.True(t, ok)
}
