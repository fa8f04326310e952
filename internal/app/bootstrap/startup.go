// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	"github.com/dalemusser/playform/internal/app/services/chat"
	"github.com/dalemusser/playform/internal/app/services/membership"
	"github.com/dalemusser/playform/internal/app/system/ratelimit"
	"github.com/dalemusser/playform/internal/app/system/tasks"
	"github.com/dalemusser/playform/internal/app/system/timeouts"
	"github.com/dalemusser/playform/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const (
	limiterIdle       = 10 * time.Minute
	hubStatsInterval  = time.Minute
	backgroundTimeout = 30 * time.Second
)

// Runtime holds the long-lived services built during Startup and shared by
// BuildHandler and Shutdown.
type Runtime struct {
	Broker     fanout.Broker
	Redis      *fanout.RedisBroker // nil for the memory backend
	Limiter    *ratelimit.Limiter
	Membership *membership.Service
	Chat       *chat.Service
	Scheduler  *workers.Scheduler
}

// Startup builds the fan-out broker and domain services and starts the
// background scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	rt := deps.Runtime
	jobs := []tasks.Job{}

	switch appCfg.FanoutBackend {
	case FanoutRedis:
		rb := fanout.NewRedisBroker(deps.Redis, fanout.DefaultBuffer, logger)
		rt.Broker = rb
		rt.Redis = rb
	default:
		hub := fanout.NewHub(fanout.DefaultBuffer, logger)
		rt.Broker = hub
		jobs = append(jobs, tasks.HubStatsJob(hub, logger, hubStatsInterval))
	}
	logger.Info("chat fan-out ready", zap.String("backend", appCfg.FanoutBackend))

	rt.Limiter = ratelimit.New(appCfg.ChatSendRate, appCfg.ChatSendBurst)
	jobs = append(jobs, tasks.LimiterSweepJob(rt.Limiter, logger, limiterIdle))

	rt.Membership = membership.New(deps.MongoDatabase, logger)
	rt.Chat = chat.New(deps.MongoDatabase, rt.Broker, rt.Limiter, logger)
	rt.Chat.PageSize = appCfg.ChatPageSize

	rt.Scheduler = workers.NewScheduler(logger, backgroundTimeout, jobs...)
	rt.Scheduler.Start()

	return nil
}
