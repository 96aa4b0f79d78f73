package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"trivia-rank-service/internal/app"
)

const (
	DefaultSchedule = "@every 5m"
	defaultTimeout  = 30 * time.Second
)

// Resync recomputes ranks on a schedule so a missed post-submission
// recomputation is repaired without waiting for the next answer.
type Resync struct {
	cron    *cron.Cron
	ranker  app.Ranker
	timeout time.Duration
	logger  *slog.Logger
}

func NewResync(ranker app.Ranker, schedule string, timeout time.Duration, logger *slog.Logger) (*Resync, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &Resync{ranker: ranker, timeout: timeout, logger: logger}
	cl := cronLogger{logger: logger}
	r.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("rank resync schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Resync) Start() {
	r.cron.Start()
	r.logger.Info("rank resync started", slog.Int("jobs", len(r.cron.Entries())))
}

// Stop halts scheduling and waits for a running job until ctx is done.
func (r *Resync) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single bounded recomputation.
func (r *Resync) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.ranker.Recompute(ctx)
	if err != nil {
		return err
	}
	r.logger.Debug("rank resync done",
		slog.String("policy", res.Policy),
		slog.Int("ranked", res.Ranked),
		slog.Int("written", res.Written),
	)
	return nil
}

func (r *Resync) run() {
	if err := r.RunOnce(context.Background()); err != nil {
		r.logger.Warn("rank resync failed", slog.Any("err", err))
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("err", err)}, keysAndValues...)...)
}
