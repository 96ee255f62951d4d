// Package scheduler runs periodic maintenance jobs on a seconds-resolution cron.
package scheduler

import (
	"context"
	"fmt"

	"wingman/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// New creates a runner whose jobs receive baseCtx. A job still running when
// its next tick fires is skipped for that tick.
func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return id, nil
}

func (r *Runner) Start() {
	log.WithField("jobs", len(r.cron.Entries())).Info("Scheduler started")
	r.cron.Start()
}

// Stop waits for running jobs to finish
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}

// MarketExpiryJob closes markets whose resolution time has passed
func MarketExpiryJob(markets service.MarketService) func(context.Context) {
	return func(ctx context.Context) {
		closed, err := markets.CloseExpiredMarkets(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to close expired markets")
			return
		}
		if closed > 0 {
			log.WithField("closed", closed).Info("Closed expired markets")
		}
	}
}
