package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edvin/instance-deploy/internal/model"
)

// ErrShuttingDown is returned by Dispatch once Shutdown has begun.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// Runner executes one deploy to completion.
type Runner interface {
	Run(ctx context.Context, req model.ProvisionRequest) (*model.DomainBinding, error)
}

// InlineDispatcher runs each accepted deploy as a detached goroutine in this
// process. A run is not tied to the request that started it. At most
// maxConcurrent runs execute at once; the rest wait for a slot.
type InlineDispatcher struct {
	runner Runner
	sem    *semaphore.Weighted
	logger zerolog.Logger

	// mu orders wg.Add in Dispatch before wg.Wait in Shutdown.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewInlineDispatcher creates an InlineDispatcher.
func NewInlineDispatcher(runner Runner, maxConcurrent int, logger zerolog.Logger) *InlineDispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &InlineDispatcher{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch starts a deploy for req and returns immediately. The run outlives
// ctx; only values carried by ctx are inherited.
func (d *InlineDispatcher) Dispatch(ctx context.Context, req model.ProvisionRequest) error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return ErrShuttingDown
	}
	d.wg.Add(1)
	d.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().Str("instance_id", req.InstanceID).
					Str("panic", fmt.Sprint(r)).Msg("deploy run panicked")
			}
		}()

		if err := d.sem.Acquire(runCtx, 1); err != nil {
			d.logger.Error().Err(err).Str("instance_id", req.InstanceID).Msg("deploy slot not acquired")
			return
		}
		defer d.sem.Release(1)

		if _, err := d.runner.Run(runCtx, req); err != nil {
			d.logger.Error().Err(err).Str("instance_id", req.InstanceID).
				Str("account_id", req.AccountID).Msg("deploy failed")
		}
	}()
	return nil
}

// Shutdown stops accepting deploys and waits for in-flight runs to finish or
// for ctx to end, whichever comes first.
func (d *InlineDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight deploys: %w", ctx.Err())
	}
}
