package options

import (
	"context"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

type SearchOptions struct {
	context.Context
	Time time.Time
	Page int64
	Size int64
}

// NewSearchOptions normalizes paging: pages start at 1 and size falls back to DefaultPageSize.
func NewSearchOptions(ctx context.Context, page, size int64) *SearchOptions {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return &SearchOptions{
		Context: ctx,
		Time:    time.Now().UTC(),
		Page:    page,
		Size:    size,
	}
}

func (o *SearchOptions) Offset() uint64 { return uint64((o.Page - 1) * o.Size) }

// Limit fetches one extra row so callers can tell whether a next page exists.
func (o *SearchOptions) Limit() uint64 { return uint64(o.Size + 1) }
