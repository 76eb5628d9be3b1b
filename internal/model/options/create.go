package options

import (
	"context"
	"time"
)

// CreateOptions carries the request context and the time the request was made.
// Archives are date-stamped with Time, so callers pin it for deterministic output.
type CreateOptions struct {
	context.Context
	Time time.Time
}

// NewCreateOptions sets Time to the current local time.
func NewCreateOptions(ctx context.Context) *CreateOptions {
	return &CreateOptions{
		Context: ctx,
		Time:    time.Now(),
	}
}

// NewCreateOptionsAt pins the request time, e.g. when a queued task replays a request.
func NewCreateOptionsAt(ctx context.Context, t time.Time) *CreateOptions {
	return &CreateOptions{Context: ctx, Time: t}
}

func (o *CreateOptions) RequestTime() time.Time { return o.Time }
