package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/repopulse/repopulse/internal/store"
)

type ScheduleSeed struct {
	Name           string  `yaml:"name"`
	PipelineType   string  `yaml:"pipeline_type"`
	CronExpression string  `yaml:"cron_expression"`
	Timezone       string  `yaml:"timezone"`
	Parameters     *string `yaml:"parameters"`
	IsActive       bool    `yaml:"is_active"`
}

// SeedSchedules creates the schedules declared in a YAML file, skipping any
// name that already exists. Absence of the file is not an error.
func SeedSchedules(
	ctx context.Context,
	path string,
	scheduleStore store.ScheduleStore,
	schedulerService *SchedulerService,
) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	seeds := make([]ScheduleSeed, 0)
	if err := yaml.Unmarshal(b, &seeds); err != nil {
		return err
	}

	for _, seed := range seeds {
		_, err := scheduleStore.ReadScheduleByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := schedulerService.ScheduleJob(ctx, NewSchedule{
			Name:           seed.Name,
			PipelineType:   store.PipelineType(seed.PipelineType),
			CronExpression: seed.CronExpression,
			Timezone:       seed.Timezone,
			Parameters:     seed.Parameters,
			IsActive:       seed.IsActive,
		}); err != nil {
			log.Printf("err seeding schedule %q: %v", seed.Name, err)
		}
	}
	return nil
}
