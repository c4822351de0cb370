package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
)

// ReadFunc performs one attempt at loading a resource.
type ReadFunc[T any] func(ctx context.Context) (T, error)

// Runner carries what every retry chain shares.
type Runner struct {
	policy  Policy
	clock   clock.Clock
	metrics *metrics.FetchMetrics
	logg    *logger.Logger
}

func NewRunner(policy Policy, clk clock.Clock, m *metrics.FetchMetrics, logg *logger.Logger) *Runner {
	if clk == nil {
		clk = clock.Real()
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Runner{policy: policy, clock: clk, metrics: m, logg: logg}
}

func (r *Runner) Policy() Policy {
	return r.policy
}

// Chain is a running retry loop.
type Chain struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel stops the chain and waits for it to exit. After Cancel returns no
// further read or slot write happens.
func (c *Chain) Cancel() {
	if c == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Done is closed once the chain has exited.
func (c *Chain) Done() <-chan struct{} {
	return c.done
}

// Err is the chain's final error; valid after Done is closed.
func (c *Chain) Err() error {
	<-c.done
	return c.err
}

// Start marks slot loading and runs the retry loop in a goroutine.
func Start[T any](ctx context.Context, r *Runner, resource string, slot *Slot[T], read ReadFunc[T]) *Chain {
	ctx, cancel := context.WithCancel(ctx)
	chain := &Chain{cancel: cancel, done: make(chan struct{})}
	gen := slot.begin()
	go func() {
		defer close(chain.done)
		defer cancel()
		chain.err = run(ctx, r, resource, slot, gen, read)
	}()
	return chain
}

// Run is the blocking form of Start.
func Run[T any](ctx context.Context, r *Runner, resource string, slot *Slot[T], read ReadFunc[T]) error {
	return run(ctx, r, resource, slot, slot.begin(), read)
}

func run[T any](ctx context.Context, r *Runner, resource string, slot *Slot[T], gen uint64, read ReadFunc[T]) error {
	ctx = r.logg.WithField(ctx, "resource", resource)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := read(ctx)
		if err == nil {
			if slot.succeed(ctx, gen, data) {
				r.metrics.IncAttempt(resource, metrics.OutcomeSuccess)
				return nil
			}
			r.metrics.IncAttempt(resource, metrics.OutcomeCancelled)
			return ctx.Err()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.metrics.IncAttempt(resource, metrics.OutcomeCancelled)
			return ctxErr
		}
		r.metrics.IncAttempt(resource, metrics.OutcomeFailure)

		attemptCtx := r.logg.WithFields(ctx, map[string]any{
			"attempt":   attempt,
			"retryable": pkgerrors.IsRetryable(err),
		})

		if attempt >= r.policy.MaxRetries {
			msg := fmt.Sprintf("failed to load %s after %d attempts: %v", resource, attempt+1, err)
			if slot.fail(ctx, gen, msg) {
				r.metrics.IncExhausted(resource)
				r.logg.Error(attemptCtx, "fetch retries exhausted", err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("failed to load %s after %d attempts", resource, attempt+1))
		}

		delay := r.policy.Delay(attempt)
		r.logg.Warn(r.logg.WithField(attemptCtx, "delay_ms", delay.Milliseconds()), fmt.Sprintf("fetch attempt failed, retrying: %v", err))
		if err := sleep(ctx, r.clock, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	fired := make(chan struct{})
	timer := clk.AfterFunc(d, func() { close(fired) })
	defer timer.Stop()
	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
