package tenantstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrCredentialNotFound distinguishes an absent or empty credential from a
// database failure; the health checker reports it without a network attempt.
var ErrCredentialNotFound = errors.New("tenantstore: no credential on record")

// Store is the database-backed configuration and result-persistence
// collaborator. It implements health.ConfigSource and health.ResultStore.
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

func New(logger *logrus.Logger, db *gorm.DB) *Store {
	return &Store{
		db:  db,
		log: logger.WithField("component", "tenant_store"),
	}
}

// ListActive returns the ERP configurations of all active tenants. The slice
// is a read-only snapshot; callers must not mutate it during a run.
func (s *Store) ListActive(ctx context.Context) ([]models.TenantERPConfig, error) {
	var configs []models.TenantERPConfig
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("tenant_id").
		Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("listing active tenant ERP configs: %w", err)
	}
	return configs, nil
}

// Config returns a single tenant's ERP configuration, active or not.
func (s *Store) Config(ctx context.Context, tenantID string) (models.TenantERPConfig, error) {
	var cfg models.TenantERPConfig
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&cfg).Error; err != nil {
		return models.TenantERPConfig{}, fmt.Errorf("loading ERP config for tenant %s: %w", tenantID, err)
	}
	return cfg, nil
}

// Credential resolves the tenant's decrypted ERP secret via the credential
// reference on its config row. Decryption at rest happens upstream; this
// layer only looks the secret up.
func (s *Store) Credential(ctx context.Context, tenantID string) (string, error) {
	cfg, err := s.Config(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if cfg.CredentialRef == "" {
		return "", ErrCredentialNotFound
	}

	var cred models.ERPCredential
	if err := s.db.WithContext(ctx).
		Where("ref = ? AND tenant_id = ?", cfg.CredentialRef, tenantID).
		First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("loading credential for tenant %s: %w", tenantID, err)
	}
	if cred.Secret == "" {
		return "", ErrCredentialNotFound
	}
	return cred.Secret, nil
}

// SaveResults persists one health-check run's results as a single batch
// insert.
func (s *Store) SaveResults(ctx context.Context, runID uuid.UUID, results []health.Result) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]models.HealthCheckRecord, 0, len(results))
	for _, r := range results {
		row := models.HealthCheckRecord{
			RunID:     runID.String(),
			TenantID:  r.TenantID,
			Status:    string(r.Status),
			Detail:    r.Detail,
			CheckedAt: r.CheckedAt,
		}
		if r.Latency != nil {
			ms := r.Latency.Milliseconds()
			row.LatencyMS = &ms
		}
		rows = append(rows, row)
	}

	if err := s.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("saving health check results: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id": runID.String(),
		"count":  len(rows),
	}).Debug("Saved health check results")
	return nil
}
