package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const STATE_REFRESH_JOB = "fan_state_refresh"

// StateRefreshJob periodically asks the fan actor to announce its state again,
// so retained state topics survive broker restarts.
type StateRefreshJob struct {
	interval  time.Duration
	send      func(req domain.FanRequest)
	scheduler quartz.Scheduler
	logger    *zap.Logger
}

func NewStateRefreshJob(interval time.Duration, send func(req domain.FanRequest), logger *zap.Logger) *StateRefreshJob {
	return &StateRefreshJob{
		interval: interval,
		send:     send,
		logger:   logger.With(zap.String("job", STATE_REFRESH_JOB)),
	}
}

// NewActorStateRefreshJob sends the refresh requests to the master actor.
func NewActorStateRefreshJob(interval time.Duration, sender actor.SenderContext, master *actor.PID, logger *zap.Logger) *StateRefreshJob {
	return NewStateRefreshJob(interval, func(req domain.FanRequest) {
		sender.Send(master, req)
	}, logger)
}

func (j *StateRefreshJob) Start(ctx context.Context) error {
	if j.interval <= 0 {
		return errors.New("state refresh interval must be positive")
	}
	scheduler, err := quartz.NewStdScheduler()
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}

	refresh := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		j.logger.Debug("job: refresh fan state")
		j.send(domain.FanRefreshStateRequest{})
		return true, nil
	})

	scheduler.Start(ctx)
	err = scheduler.ScheduleJob(
		quartz.NewJobDetail(refresh, quartz.NewJobKey(STATE_REFRESH_JOB)),
		quartz.NewSimpleTrigger(j.interval),
	)
	if err != nil {
		scheduler.Stop()
		return fmt.Errorf("could not schedule %s: %w", STATE_REFRESH_JOB, err)
	}
	j.scheduler = scheduler
	j.logger.Info("job: scheduled", zap.Duration("interval", j.interval))
	return nil
}

func (j *StateRefreshJob) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
