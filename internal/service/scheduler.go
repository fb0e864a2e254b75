package service

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// NewScheduler builds the gocron scheduler all pipeline jobs run on. The base
// location is UTC; per-schedule timezones travel inside the cron expression
// as a CRON_TZ prefix, so the base only decides unprefixed expressions.
func NewScheduler(opts ...gocron.SchedulerOption) gocron.Scheduler {
	opts = append([]gocron.SchedulerOption{gocron.WithLocation(time.UTC)}, opts...)
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		log.Fatal(err)
	}
	return scheduler
}
