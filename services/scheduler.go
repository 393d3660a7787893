// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartWeeklyScheduler triggers the league ranking run on the configured
// cron expression (Mondays 00:00 UTC by default). The run itself is
// idempotent by period, so a stray extra trigger is harmless.
func (s *LeagueService) StartWeeklyScheduler(cronExpr string) (gocron.Scheduler, error) {
	// Period keys are derived from UTC weeks, so the trigger must fire on
	// the UTC clock too, whatever the host timezone is.
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			summary, err := s.RunWeeklyLeagueUpdate()
			if err != nil {
				s.Log.Error("weekly league update failed", zap.Error(err))
				return
			}
			if summary.AlreadyProcessed {
				return
			}
			s.Log.Info("scheduled league update complete",
				zap.String("period", summary.PeriodKey),
				zap.Int("members", summary.TotalMembers))
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
