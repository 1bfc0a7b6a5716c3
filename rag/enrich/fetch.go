package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var errCallCeiling = errors.New("external call ceiling reached")

type fetched struct {
	source   string
	results  []Result
	attempts int
	err      error
}

// fetch queries every selected connector concurrently and waits for all of
// them. Results keep the order of selected.
func (o *Orchestrator) fetch(ctx context.Context, selected []Connector, text string) []fetched {
	out := make([]fetched, len(selected))
	var (
		wg    sync.WaitGroup
		calls atomic.Int32
	)
	for i, c := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = o.fetchOne(ctx, c, text, &calls)
		}()
	}
	wg.Wait()
	return out
}

// fetchOne calls a connector with at most one retry for transient failures.
// Every call, retries included, draws from the shared per-query ceiling.
func (o *Orchestrator) fetchOne(ctx context.Context, c Connector, text string, calls *atomic.Int32) fetched {
	f := fetched{source: c.Name()}
	op := func() ([]Result, error) {
		if int(calls.Add(1)) > o.cfg.MaxCalls {
			return nil, backoff.Permanent(errCallCeiling)
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		f.attempts++

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.ConnectorTimeout)
		defer cancel()
		callCtx, span := telemetry.Start(callCtx, "enrich.connector",
			attribute.String("connector", c.Name()),
			attribute.Int("attempt", f.attempts),
		)
		results, err := c.Search(callCtx, text)
		if err == nil && len(results) == 0 {
			err = errorskg.ErrNoResults
		}
		telemetry.End(span, err)
		if err != nil {
			return nil, classify(ctx, callCtx, err)
		}
		return results, nil
	}

	results, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(o.cfg.RetryBackoff)),
		backoff.WithMaxTries(2),
		backoff.WithNotify(func(err error, _ time.Duration) {
			o.logger.Debug("retrying connector", "connector", c.Name(), "error", err)
		}),
	)
	if err != nil {
		f.err = fmt.Errorf("%s: %w", c.Name(), errors.Join(errorskg.ErrConnector, err))
		return f
	}
	f.results = make([]Result, 0, len(results))
	for _, r := range results {
		r = r.Clone()
		if r.Source == "" {
			r.Source = c.Name()
		}
		f.results = append(f.results, r)
	}
	return f
}

// classify decides whether a connector error is worth the single retry.
func classify(parent, call context.Context, err error) error {
	switch {
	case errors.Is(err, errorskg.ErrNoResults):
		return backoff.Permanent(err)
	case parent.Err() != nil:
		return backoff.Permanent(parent.Err())
	case call.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", errorskg.ErrTransient, err)
	case errors.Is(err, errorskg.ErrTransient):
		return err
	default:
		return backoff.Permanent(err)
	}
}
