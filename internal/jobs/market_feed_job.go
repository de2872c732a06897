package jobs

import (
	"context"
	"log"
	"time"

	"chronos-exchange/internal/services"
)

// MarketFeedJob keeps the market catalog in sync with the external feed and
// sweeps expired markets to closed.
type MarketFeedJob struct {
	feed      *services.FeedService
	lifecycle *services.LifecycleService
	stopCh    chan struct{}
}

func NewMarketFeedJob(feed *services.FeedService, lifecycle *services.LifecycleService) *MarketFeedJob {
	return &MarketFeedJob{
		feed:      feed,
		lifecycle: lifecycle,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic feed sync and expiry sweep
func (j *MarketFeedJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		ctx := context.Background()
		j.runOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.stopCh:
				return
			case <-ticker.C:
				j.runOnce(ctx)
			}
		}
	}()
}

// Stop stops the job
func (j *MarketFeedJob) Stop() {
	close(j.stopCh)
}

func (j *MarketFeedJob) runOnce(ctx context.Context) {
	if err := j.feed.SyncMarkets(ctx); err != nil {
		log.Printf("Feed sync error: %v", err)
	}

	closed, err := j.lifecycle.CloseExpired(time.Now())
	if err != nil {
		log.Printf("Expiry sweep error: %v", err)
	} else if closed > 0 {
		log.Printf("Closed %d expired markets", closed)
	}
}
