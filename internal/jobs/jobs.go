// Package jobs runs the periodic marketplace housekeeping: releasing
// payment holds that are due and expiring stale offers.
package jobs

import (
	"context"
	"sync"
	"time"

	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"

	"github.com/robfig/cron/v3"
)

type Releaser interface {
	ReleaseDue(ctx context.Context, now time.Time) (int, error)
}

type Expirer interface {
	ExpireDue(now time.Time) (int64, error)
}

type Result struct {
	Released int   `json:"released"`
	Expired  int64 `json:"expired"`
}

type Runner struct {
	Orders Releaser
	Offers Expirer
	Now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRunner(orders Releaser, offers Expirer) *Runner {
	return &Runner{Orders: orders, Offers: offers, Now: time.Now}
}

// RunOnce does one pass of every job. Runs never overlap; a failing job
// doesn't stop the next.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	var res Result
	released, relErr := r.Orders.ReleaseDue(ctx, now)
	res.Released = released
	if relErr != nil {
		metrics.JobRuns.WithLabelValues("release", "error").Inc()
		applog.Event("jobs.release", relErr, nil)
	}

	expired, expErr := r.Offers.ExpireDue(now)
	res.Expired = expired
	if expErr != nil {
		metrics.JobRuns.WithLabelValues("expire", "error").Inc()
		applog.Event("jobs.expire", expErr, nil)
	} else if expired > 0 {
		metrics.JobRuns.WithLabelValues("expire", "ok").Add(float64(expired))
	}

	applog.Event("jobs.run", nil, map[string]any{"released": res.Released, "expired": res.Expired})
	if relErr != nil {
		return res, relErr
	}
	return res, expErr
}

// Start schedules RunOnce with a cron spec such as "@every 15m".
func (r *Runner) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() {
		_, _ = r.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	applog.Event("jobs.start", nil, map[string]any{"schedule": spec})
	return nil
}

// Stop waits for a running pass to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
