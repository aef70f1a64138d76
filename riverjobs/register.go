package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// RegisterPurgeExpiredChallengesWorker registers the purge worker into a River workers registry.
func RegisterPurgeExpiredChallengesWorker(ws *river.Workers, purger ChallengePurger) {
	river.AddWorker(ws, NewPurgeExpiredChallengesWorker(purger))
}

// ParseSchedule parses a standard five-field cron expression
func ParseSchedule(cronSpec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return schedule, nil
}

// AddPurgeExpiredChallengesPeriodicJob enqueues the purge job on a cron schedule.
//
// Example cron: "*/15 * * * *" (every 15 minutes).
func AddPurgeExpiredChallengesPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeExpiredChallengesArgs, runOnStart bool) error {
	schedule, err := ParseSchedule(cronSpec)
	if err != nil {
		return err
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
