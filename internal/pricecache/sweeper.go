package pricecache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically evicts expired entries. It owns no state beyond the
// ticker; stopping it never loses data, only delays eviction until the next
// read or manual sweep.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
	log      *logrus.Entry
}

func NewSweeper(logger *logrus.Logger, cache *Cache, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: interval,
		log:      logger.WithField("component", "cache_sweeper"),
	}
}

// Start blocks until ctx is cancelled, sweeping on a fixed cadence. Run it
// in its own goroutine and cancel the context on shutdown.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("Starting cache sweeper")

	for {
		select {
		case <-ticker.C:
			if removed := s.cache.SweepExpired(); removed > 0 {
				s.log.WithField("removed", removed).Info("Swept expired cache entries")
			}
		case <-ctx.Done():
			s.log.Info("Stopping cache sweeper")
			return
		}
	}
}
