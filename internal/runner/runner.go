// Package runner drives the portfolio manager: a single cycle for one-shot
// invocations, or a cron-scheduled loop that survives individual cycle
// failures.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/internal/portfolio"
)

// CycleRunner runs one decision cycle. Satisfied by *portfolio.Manager.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleState, error)
}

// Runner schedules cycles and converts failures into journal records instead
// of process exits.
type Runner struct {
	manager CycleRunner
	auditor *audit.Logger
	log     zerolog.Logger
}

// New builds the runner.
func New(manager CycleRunner, auditor *audit.Logger, log zerolog.Logger) *Runner {
	return &Runner{
		manager: manager,
		auditor: auditor,
		log:     log.With().Str("component", "runner").Logger(),
	}
}

var _ CycleRunner = (*portfolio.Manager)(nil)

// Once runs a single cycle. A failed cycle is journaled and returned.
func (r *Runner) Once(ctx context.Context) (*models.CycleState, error) {
	state, err := r.runSafe(ctx)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Loop runs cycles on the given interval until ctx is cancelled. An overdue
// cycle skips the next tick rather than stacking; a failed cycle is journaled
// and the loop carries on.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("loop interval must be positive, got %s", interval)
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := r.runSafe(ctx); err != nil {
			r.log.Error().Err(err).Msg("cycle failed, continuing")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule loop: %w", err)
	}

	r.log.Info().Dur("interval", interval).Msg("loop started")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.log.Info().Msg("loop stopped")
	return ctx.Err()
}

// runSafe runs one cycle, converting panics and errors into runner_error
// journal records.
func (r *Runner) runSafe(ctx context.Context) (state *models.CycleState, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("cycle panic: %v", rec)
			state = nil
			r.journalError(err)
		}
	}()

	state, err = r.manager.RunCycle(ctx)
	if err != nil {
		r.journalError(err)
		return nil, err
	}
	return state, nil
}

// journalError records a failed cycle under a fresh run id, so the record is
// addressable even when the cycle died before the manager assigned one.
func (r *Runner) journalError(err error) {
	if r.auditor != nil {
		r.auditor.LogRunnerError(uuid.NewString()[:8], err)
	}
}
