package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/marketdata"
)

// refreshTimeout bounds one full refresh pass. Each symbol is one
// rate-limited upstream request, so large caches take a while.
const refreshTimeout = 10 * time.Minute

// RefreshPricesJob re-fetches cached price history that has gone
// stale, so interactive requests hit a warm cache.
type RefreshPricesJob struct {
	marketData *marketdata.Service
	log        zerolog.Logger
}

// NewRefreshPricesJob creates a new RefreshPricesJob
func NewRefreshPricesJob(marketData *marketdata.Service, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		marketData: marketData,
		log:        log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string {
	return "refresh_prices"
}

// Run executes the price refresh job
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	refreshed, err := j.marketData.RefreshStale(ctx)
	if err != nil {
		return err
	}

	j.log.Info().Int("refreshed", refreshed).Msg("Price refresh completed")
	return nil
}
