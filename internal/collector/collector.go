package collector

import (
	"context"
	"errors"
	"fmt"

	"pricebackfill/internal/ingest"
	"pricebackfill/internal/model"
	"pricebackfill/internal/persist"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Flow is one backfill source run over the window.
type Flow interface {
	Run(ctx context.Context, window model.Window) (ingest.Summary, error)
}

type Step struct {
	Name string
	Flow Flow
}

// Collector runs its steps in order against one shared session.
type Collector struct {
	window    model.Window
	persister *persist.Persister
	steps     []Step
	logger    *zap.Logger
}

func New(window model.Window, persister *persist.Persister, logger *zap.Logger, steps ...Step) *Collector {
	return &Collector{window: window, persister: persister, steps: steps, logger: logger}
}

// Run executes every step in order. A step that fails or panics does not stop
// the steps after it: its uncommitted writes are rolled back, the failure is
// logged and recorded, and the next step starts. Steps are skipped only once
// ctx is done. The returned error joins every step failure.
func (c *Collector) Run(ctx context.Context) ([]ingest.Summary, error) {
	var (
		summaries []ingest.Summary
		errs      []error
	)

	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s flow not started: %w", step.Name, err))
			continue
		}

		c.logger.Info("flow started", zap.String("flow", step.Name))

		var (
			summary ingest.Summary
			err     error
			pc      panics.Catcher
		)
		pc.Try(func() {
			summary, err = step.Flow.Run(ctx, c.window)
		})
		if r := pc.Recovered(); r != nil {
			err = fmt.Errorf("panic: %w", r.AsError())
		}

		if err != nil {
			if rbErr := c.persister.Rollback(); rbErr != nil {
				c.logger.Error("rollback failed", zap.String("flow", step.Name), zap.Error(rbErr))
			}
			c.logger.Error("flow failed", append(summary.Fields(), zap.Error(err))...)
			errs = append(errs, fmt.Errorf("%s flow: %w", step.Name, err))
			continue
		}

		summaries = append(summaries, summary)
		c.logger.Info("flow finished", summary.Fields()...)
	}

	return summaries, errors.Join(errs...)
}
