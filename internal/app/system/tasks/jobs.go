// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	"github.com/dalemusser/playform/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// LimiterSweepJob drops send-rate buckets for users idle longer than idle.
func LimiterSweepJob(l *ratelimit.Limiter, logger *zap.Logger, idle time.Duration) Job {
	interval := idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	return Job{
		Name:     "send-limiter-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			if n := l.Sweep(idle); n > 0 {
				logger.Debug("swept idle send limiters",
					zap.Int("removed", n),
					zap.Int("remaining", l.Len()))
			}
			return nil
		},
	}
}

// HubStatsJob logs in-process fan-out counters.
func HubStatsJob(h *fanout.Hub, logger *zap.Logger, interval time.Duration) Job {
	var lastDropped int64
	return Job{
		Name:     "fanout-stats",
		Interval: interval,
		Run: func(ctx context.Context) error {
			st := h.Stats()
			fields := []zap.Field{
				zap.Int("topics", st.Topics),
				zap.Int("subscribers", st.Subscribers),
				zap.Int64("delivered", st.Delivered),
				zap.Int64("dropped", st.Dropped),
			}
			if st.Dropped > lastDropped {
				logger.Warn("fan-out dropped events for slow subscribers", fields...)
			} else {
				logger.Debug("fan-out stats", fields...)
			}
			lastDropped = st.Dropped
			return nil
		},
	}
}
