// Package scheduler runs periodic maintenance on a cron clock.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crucial707/spend-ledger/internal/metrics"
)

// Job is one periodic task. Spec is any expression cron.ParseStandard accepts,
// including descriptors such as "@every 1m".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Start registers jobs on a new cron and starts it. Jobs run with ctx; a panicking job
// is logged and does not stop the others. Stop the returned cron on shutdown.
func Start(ctx context.Context, jobs []Job) (*cron.Cron, error) {
	logger := slogLogger{slog.Default()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))

	for _, j := range jobs {
		if _, err := c.AddFunc(j.Spec, func() { j.Run(ctx) }); err != nil {
			return nil, fmt.Errorf("scheduler: job %q has invalid spec %q: %w", j.Name, j.Spec, err)
		}
		slog.Debug("scheduler: job added", "job", j.Name, "spec", j.Spec)
	}

	c.Start()
	return c, nil
}

// SweepJob wraps a cleanup function that reports how many entries it removed.
func SweepJob(name, spec string, sweep func() int) Job {
	return Job{
		Name: name,
		Spec: spec,
		Run: func(ctx context.Context) {
			if n := sweep(); n > 0 {
				slog.DebugContext(ctx, "scheduler: swept entries", "job", name, "removed", n)
			}
		},
	}
}

// MetricsJob logs the domain counters at every tick.
func MetricsJob(spec string) Job {
	return Job{
		Name: "metrics-log",
		Spec: spec,
		Run: func(ctx context.Context) {
			snap, err := metrics.Snapshot()
			if err != nil {
				slog.WarnContext(ctx, "scheduler: gather metrics", "error", err)
				return
			}
			attrs := make([]any, 0, 2*len(snap))
			for name, v := range snap {
				attrs = append(attrs, name, v)
			}
			slog.InfoContext(ctx, "metrics", attrs...)
		},
	}
}

// Every turns an interval into a cron descriptor.
func Every(d time.Duration) string {
	return "@every " + d.String()
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Info(msg string, keysAndValues ...any) {
	s.l.Debug("cron: "+msg, keysAndValues...)
}

func (s slogLogger) Error(err error, msg string, keysAndValues ...any) {
	s.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
