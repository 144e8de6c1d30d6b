// File: internal/model/resilient.go
package model

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// fallbackResponse is returned when every retry fails. It is a valid command
// that asks nothing of the screen, so the step loop degrades to a recorded
// no-op instead of tearing the session down over a transient outage.
const fallbackResponse = `{"plan":"handle provider error","say":"Temporary provider error; please retry.","next_action":"NONE","args":{},"done":false}`

// Resilient retries the wrapped client with exponential backoff and degrades
// to fallbackResponse once the budget is spent.
type Resilient struct {
	inner          Client
	logger         *zap.Logger
	maxElapsedTime time.Duration
	maxInterval    time.Duration
}

// NewResilient wraps inner with the default retry budget.
func NewResilient(inner Client, logger *zap.Logger) *Resilient {
	return &Resilient{
		inner:          inner,
		logger:         logger.Named("model.retry"),
		maxElapsedTime: 90 * time.Second,
		maxInterval:    15 * time.Second,
	}
}

func (r *Resilient) Step(ctx context.Context, q Query) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsedTime
	b.MaxInterval = r.maxInterval

	var response string
	operation := func() error {
		out, err := r.inner.Step(ctx, q)
		if err != nil {
			r.logger.Warn("Provider request failed, retrying...", zap.Error(err))
			return err
		}
		response = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Error("Provider exhausted retry budget, degrading to no-op response.", zap.Error(err))
		return fallbackResponse, nil
	}
	return response, nil
}
