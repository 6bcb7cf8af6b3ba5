package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// PruneHistoryJob deletes optimization run records older than the
// retention window.
type PruneHistoryJob struct {
	history       *optimization.HistoryRepository
	retentionDays int
	log           zerolog.Logger
}

// NewPruneHistoryJob creates a new PruneHistoryJob
func NewPruneHistoryJob(history *optimization.HistoryRepository, retentionDays int, log zerolog.Logger) *PruneHistoryJob {
	return &PruneHistoryJob{
		history:       history,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "prune_history").Logger(),
	}
}

// Name returns the job name
func (j *PruneHistoryJob) Name() string {
	return "prune_history"
}

// Run executes the history retention job
func (j *PruneHistoryJob) Run() error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.history.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Str("cutoff", cutoff.Format("2006-01-02")).
			Msg("Pruned optimization history")
	}

	return nil
}
