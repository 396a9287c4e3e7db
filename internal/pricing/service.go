package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/coverly/erp-bridge/internal/erp"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/coverly/erp-bridge/internal/pricecache"
	"github.com/sirupsen/logrus"
)

// Fetcher is the live-pricing side of the ERP client contract. Satisfied by
// *erp.Client.
type Fetcher interface {
	FetchPrices(ctx context.Context, cfg models.TenantERPConfig, credential string, planIDs []string) (*erp.FetchResult, error)
}

// ConfigSource resolves a single tenant's ERP config and credential.
type ConfigSource interface {
	Config(ctx context.Context, tenantID string) (models.TenantERPConfig, error)
	Credential(ctx context.Context, tenantID string) (string, error)
}

// Service is the cache-fronted price lookup path: check the cache, on miss
// fetch from the tenant's ERP and store the result with the configured TTL.
// ERP failures are returned to the caller and never cached.
type Service struct {
	cache   *pricecache.Cache
	fetcher Fetcher
	source  ConfigSource
	ttl     time.Duration
	log     *logrus.Entry
}

func NewService(logger *logrus.Logger, cache *pricecache.Cache, fetcher Fetcher, source ConfigSource, ttl time.Duration) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		source:  source,
		ttl:     ttl,
		log:     logger.WithField("component", "pricing_service"),
	}
}

// GetPrices returns pricing for the given plans, served from cache when a
// live entry exists. The second return value reports whether the response
// came from cache.
func (s *Service) GetPrices(ctx context.Context, tenantID string, planIDs []string) ([]erp.PriceBreakdown, bool, error) {
	key, err := pricecache.GenerateKey(tenantID, planIDs)
	if err != nil {
		return nil, false, err
	}

	if entry, ok := s.cache.Get(key); ok {
		s.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"source":    "cache",
		}).Debug("Serving prices from cache")
		return entry.Data, true, nil
	}

	cfg, err := s.source.Config(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	credential, err := s.source.Credential(ctx, tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("resolving ERP credential for tenant %s: %w", tenantID, err)
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"source":    "erp",
		"plan_ids":  len(planIDs),
	}).Debug("Fetching prices from ERP")

	result, err := s.fetcher.FetchPrices(ctx, cfg, credential, planIDs)
	if err != nil {
		return nil, false, err
	}
	if !result.Success {
		code, message := "ERP_ERROR", "ERP returned an unsuccessful result"
		if result.Error != nil {
			code, message = result.Error.Code, result.Error.Message
		}
		return nil, false, fmt.Errorf("ERP price fetch failed for tenant %s: %s: %s", tenantID, code, message)
	}

	s.cache.Set(key, result.Data, s.ttl, tenantID)
	return result.Data, false, nil
}
