package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coverly/erp-bridge/internal/erp"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Result is one tenant's classified probe outcome for a single run. Results
// are created fresh each run and never mutated after classification.
type Result struct {
	TenantID  string
	Status    Status
	Latency   *time.Duration
	Detail    string
	CheckedAt time.Time
}

// Summary aggregates one run's results.
type Summary struct {
	RunID     uuid.UUID     `json:"run_id"`
	Total     int           `json:"total"`
	Healthy   int           `json:"healthy"`
	Degraded  int           `json:"degraded"`
	Down      int           `json:"down"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ConfigSource supplies the active tenant ERP configurations and resolves
// their decrypted credentials.
type ConfigSource interface {
	ListActive(ctx context.Context) ([]models.TenantERPConfig, error)
	Credential(ctx context.Context, tenantID string) (string, error)
}

// ResultStore persists one run's results as a single batch.
type ResultStore interface {
	SaveResults(ctx context.Context, runID uuid.UUID, results []Result) error
}

// Prober performs the reachability check. Satisfied by *erp.Client.
type Prober interface {
	Probe(ctx context.Context, cfg models.TenantERPConfig, credential string) (erp.ProbeResult, error)
}

// ErrRunInProgress is returned when a run is triggered while another is still
// executing. The reference behavior allowed overlapping runs; we reject them
// instead so a slow tenant set cannot pile up duplicate probes.
var ErrRunInProgress = errors.New("health: check run already in progress")

// Checker probes every active tenant's ERP endpoint in bounded-concurrency
// batches and persists classified results. One tenant's failure never affects
// a sibling probe, the batch, or the run.
type Checker struct {
	source        ConfigSource
	store         ResultStore
	prober        Prober
	batchSize     int
	degradedAfter time.Duration
	log           *logrus.Entry

	runMu sync.Mutex
}

func NewChecker(logger *logrus.Logger, source ConfigSource, store ResultStore, prober Prober, batchSize int, degradedAfter time.Duration) *Checker {
	if batchSize < 1 {
		batchSize = 1
	}
	if degradedAfter <= 0 {
		degradedAfter = time.Second
	}
	return &Checker{
		source:        source,
		store:         store,
		prober:        prober,
		batchSize:     batchSize,
		degradedAfter: degradedAfter,
		log:           logger.WithField("component", "health_checker"),
	}
}

// Run executes one full health-check pass: list active tenants, probe them in
// sequential batches with full parallelism inside each batch, persist the
// results, and return a summary. Only a configuration-list failure fails the
// run; persistence failure is logged and the summary still returned.
func (c *Checker) Run(ctx context.Context) (*Summary, error) {
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMu.Unlock()

	runID := uuid.New()
	start := time.Now()
	log := c.log.WithField("run_id", runID.String())

	configs, err := c.source.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list active tenant ERP configs")
		return nil, fmt.Errorf("listing active tenant configs: %w", err)
	}

	results := make([]Result, 0, len(configs))
	for batchStart := 0; batchStart < len(configs); batchStart += c.batchSize {
		batchEnd := batchStart + c.batchSize
		if batchEnd > len(configs) {
			batchEnd = len(configs)
		}
		batch := configs[batchStart:batchEnd]

		batchResults := make([]Result, len(batch))
		var wg sync.WaitGroup
		for i, cfg := range batch {
			wg.Add(1)
			go func(i int, cfg models.TenantERPConfig) {
				defer wg.Done()
				batchResults[i] = c.probeTenant(ctx, cfg)
			}(i, cfg)
		}
		wg.Wait()

		results = append(results, batchResults...)
	}

	if len(results) > 0 {
		if err := c.store.SaveResults(ctx, runID, results); err != nil {
			log.WithError(err).Error("Failed to persist health check results")
		}
	}

	summary := &Summary{
		RunID:     runID,
		Total:     len(results),
		StartedAt: start,
		Duration:  time.Since(start),
	}
	for _, r := range results {
		switch r.Status {
		case StatusHealthy:
			summary.Healthy++
		case StatusDegraded:
			summary.Degraded++
		case StatusDown:
			summary.Down++
		}
	}

	log.WithFields(logrus.Fields{
		"total":    summary.Total,
		"healthy":  summary.Healthy,
		"degraded": summary.Degraded,
		"down":     summary.Down,
		"duration": summary.Duration,
	}).Info("Health check run completed")

	return summary, nil
}

// probeTenant classifies one tenant. Every failure path is absorbed here;
// this function never returns an error.
func (c *Checker) probeTenant(ctx context.Context, cfg models.TenantERPConfig) Result {
	result := Result{
		TenantID:  cfg.TenantID,
		CheckedAt: time.Now(),
	}

	credential, err := c.source.Credential(ctx, cfg.TenantID)
	if err != nil {
		result.Status = StatusDown
		result.Detail = fmt.Sprintf("credential unavailable: %v", err)
		return result
	}

	probe, err := c.prober.Probe(ctx, cfg, credential)
	if err != nil {
		result.Status = StatusDown
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			latency := probe.Latency
			result.Latency = &latency
			result.Detail = fmt.Sprintf("probe timed out after %s", cfg.Timeout())
		} else {
			result.Detail = err.Error()
		}
		return result
	}

	latency := probe.Latency
	result.Latency = &latency

	switch {
	case probe.StatusCode < 200 || probe.StatusCode > 299:
		result.Status = StatusDown
		result.Detail = fmt.Sprintf("endpoint returned status %d %s", probe.StatusCode, http.StatusText(probe.StatusCode))
	case probe.Latency > c.degradedAfter:
		result.Status = StatusDegraded
	default:
		result.Status = StatusHealthy
	}

	return result
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// Scheduler triggers Run on a fixed cadence until its context is cancelled.
type Scheduler struct {
	checker  *Checker
	interval time.Duration
	log      *logrus.Entry
}

func NewScheduler(logger *logrus.Logger, checker *Checker, interval time.Duration) *Scheduler {
	return &Scheduler{
		checker:  checker,
		interval: interval,
		log:      logger.WithField("component", "health_scheduler"),
	}
}

// Start blocks until ctx is cancelled. A trigger that lands while a run is
// still in flight is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("Starting health check scheduler")

	for {
		select {
		case <-ticker.C:
			if _, err := s.checker.Run(ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					s.log.Warn("Skipping health check trigger, previous run still in flight")
					continue
				}
				s.log.WithError(err).Error("Scheduled health check run failed")
			}
		case <-ctx.Done():
			s.log.Info("Stopping health check scheduler")
			return
		}
	}
}
