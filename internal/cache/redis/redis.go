package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	cachepkg "github.com/webitel/bot-report-exporter/internal/cache"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

const (
	queueKey = "report_exporter:queue"

	// TaskTTL bounds how long finished task state stays readable.
	TaskTTL        = 24 * time.Hour
	DefaultPopWait = 5 * time.Second
)

// ErrQueueEmpty is returned by PopExportTask when the pop wait elapses.
var ErrQueueEmpty = errors.New("queue empty (timeout)", errors.WithID("cache.queue.empty"))

// Compile-time check to verify implements interface.
var _ cachepkg.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client  *redis.Client
	popWait time.Duration
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Ping Redis to check the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect to Redis at %s: %w", addr, err)
	}

	return &RedisCache{client: rdb, popWait: DefaultPopWait}, nil
}

// WithPopWait changes how long PopExportTask blocks.
func (r *RedisCache) WithPopWait(d time.Duration) *RedisCache {
	r.popWait = d
	return r
}

func (r *RedisCache) Close() error { return r.client.Close() }

func (r *RedisCache) Exists(ctx context.Context, taskID string) (bool, error) {
	count, err := r.client.Exists(ctx, statusKey(taskID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisCache) PushExportTask(ctx context.Context, task report.ExportTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.TaskID, err)
	}
	return r.client.LPush(ctx, queueKey, data).Err()
}

func (r *RedisCache) PopExportTask(ctx context.Context) (report.ExportTask, error) {
	var task report.ExportTask
	res, err := r.client.BRPop(ctx, r.popWait, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return task, ErrQueueEmpty
		}
		return task, err
	}
	// BRPOP answers [key, value].
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return task, fmt.Errorf("unmarshal task: %w", err)
	}
	return task, nil
}

func (r *RedisCache) SetExportStatus(ctx context.Context, taskID string, status report.ExportStatus) error {
	return r.client.Set(ctx, statusKey(taskID), string(status), TaskTTL).Err()
}

// GetExportStatus returns an empty status for unknown tasks.
func (r *RedisCache) GetExportStatus(ctx context.Context, taskID string) (report.ExportStatus, error) {
	s, err := r.client.Get(ctx, statusKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return report.ExportStatus(s), err
}

func (r *RedisCache) SetExportLocation(ctx context.Context, taskID, location string) error {
	return r.client.Set(ctx, locationKey(taskID), location, TaskTTL).Err()
}

func (r *RedisCache) GetExportLocation(ctx context.Context, taskID string) (string, error) {
	s, err := r.client.Get(ctx, locationKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return s, err
}

func (r *RedisCache) SetExportHistoryID(ctx context.Context, taskID string, historyID int64) error {
	return r.client.Set(ctx, historyKey(taskID), historyID, TaskTTL).Err()
}

func (r *RedisCache) GetExportHistoryID(ctx context.Context, taskID string) (int64, error) {
	return r.client.Get(ctx, historyKey(taskID)).Int64()
}

func (r *RedisCache) ClaimTask(ctx context.Context, dedupKey, taskID string) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, claimKey(dedupKey), taskID, TaskTTL).Result()
	if err != nil || ok {
		return taskID, ok, err
	}
	holder, err := r.client.Get(ctx, claimKey(dedupKey)).Result()
	if errors.Is(err, redis.Nil) {
		// released between SETNX and GET
		return r.ClaimTask(ctx, dedupKey, taskID)
	}
	return holder, false, err
}

func (r *RedisCache) ReleaseTask(ctx context.Context, dedupKey string) error {
	return r.client.Del(ctx, claimKey(dedupKey)).Err()
}

// ClearExportTask drops the bookkeeping of a task but keeps its status and
// location readable until they expire.
func (r *RedisCache) ClearExportTask(ctx context.Context, taskID string) error {
	return r.client.Del(ctx, historyKey(taskID)).Err()
}

func (r *RedisCache) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

// helpers to standardize keys
func statusKey(taskID string) string   { return fmt.Sprintf("report_exporter:task:%s:status", taskID) }
func locationKey(taskID string) string { return fmt.Sprintf("report_exporter:task:%s:location", taskID) }
func historyKey(taskID string) string  { return fmt.Sprintf("report_exporter:task:%s:history", taskID) }
func claimKey(dedupKey string) string  { return fmt.Sprintf("report_exporter:claim:%s", dedupKey) }
