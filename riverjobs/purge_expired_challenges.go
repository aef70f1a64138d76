package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	log "github.com/sirupsen/logrus"
)

// ChallengePurger deletes inert wallet challenges
type ChallengePurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// PurgeExpiredChallengesArgs configures one purge run
type PurgeExpiredChallengesArgs struct {
	// RetentionMinutes keeps expired or consumed challenges around for a while
	// so late submissions still read as expired rather than unknown.
	RetentionMinutes int `json:"retention_minutes,omitempty"`
}

// Kind identifies the job in River
func (PurgeExpiredChallengesArgs) Kind() string { return "walletgate_purge_expired_challenges" }

// InsertOpts keeps at most one purge per period in the default queue
func (args PurgeExpiredChallengesArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 10 * time.Minute,
			ByQueue:  true,
		},
	}
}

// PurgeExpiredChallengesWorker removes challenges that can no longer be consumed
type PurgeExpiredChallengesWorker struct {
	river.WorkerDefaults[PurgeExpiredChallengesArgs]
	purger ChallengePurger
	now    func() time.Time
}

// NewPurgeExpiredChallengesWorker creates a worker over the challenge store
func NewPurgeExpiredChallengesWorker(purger ChallengePurger) *PurgeExpiredChallengesWorker {
	return &PurgeExpiredChallengesWorker{purger: purger, now: time.Now}
}

// Timeout bounds a single purge run
func (w *PurgeExpiredChallengesWorker) Timeout(*river.Job[PurgeExpiredChallengesArgs]) time.Duration {
	return 2 * time.Minute
}

// Work deletes challenges that expired or were consumed before the retention window
func (w *PurgeExpiredChallengesWorker) Work(ctx context.Context, job *river.Job[PurgeExpiredChallengesArgs]) error {
	if w == nil || w.purger == nil {
		return errors.New("walletgate purge: challenge store not configured")
	}
	retention := job.Args.RetentionMinutes
	if retention <= 0 {
		retention = 10
	}

	cutoff := w.now().Add(-time.Duration(retention) * time.Minute)
	purged, err := w.purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"purged": purged, "cutoff": cutoff}).Debug("purged expired wallet challenges")
	return nil
}
