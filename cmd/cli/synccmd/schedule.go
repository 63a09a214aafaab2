package synccmd

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	scheduleErrorTemplateConstant     = "invalid cron expression %q: %w"
	logMessageScheduleStartedConstant = "Scheduled sync started"
	logMessageScheduleStoppedConstant = "Scheduled sync stopped"
	logMessageScheduledPassFailed     = "Scheduled sync pass failed"
	logFieldScheduleConstant          = "schedule"
	logFieldNextRunConstant           = "next_run"
	cronLoggerComponentConstant       = "cron"
	logFieldComponentConstant         = "component"
)

// runScheduled runs pass on the cron schedule until the context is cancelled. Overlapping passes are skipped
// and a panicking pass does not stop the scheduler.
func runScheduled(executionContext context.Context, schedule string, logger *zap.Logger, pass func(context.Context) error) error {
	cronLogger := cronLoggerAdapter{logger: logger.With(zap.String(logFieldComponentConstant, cronLoggerComponentConstant))}
	scheduler := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	entryIdentifier, scheduleError := scheduler.AddFunc(schedule, func() {
		if passError := pass(executionContext); passError != nil {
			logger.Error(logMessageScheduledPassFailed, zap.Error(passError))
		}
	})
	if scheduleError != nil {
		return fmt.Errorf(scheduleErrorTemplateConstant, schedule, scheduleError)
	}

	scheduler.Start()
	logger.Info(logMessageScheduleStartedConstant,
		zap.String(logFieldScheduleConstant, schedule),
		zap.Time(logFieldNextRunConstant, scheduler.Entry(entryIdentifier).Next),
	)

	<-executionContext.Done()
	stopped := scheduler.Stop()
	<-stopped.Done()
	logger.Info(logMessageScheduleStoppedConstant, zap.String(logFieldScheduleConstant, schedule))
	return nil
}

// cronLoggerAdapter routes scheduler diagnostics through zap.
type cronLoggerAdapter struct {
	logger *zap.Logger
}

func (adapter cronLoggerAdapter) Info(message string, keysAndValues ...interface{}) {
	adapter.logger.Sugar().Debugw(message, keysAndValues...)
}

func (adapter cronLoggerAdapter) Error(failure error, message string, keysAndValues ...interface{}) {
	adapter.logger.Sugar().Errorw(message, append(keysAndValues, "error", failure)...)
}
