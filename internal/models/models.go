package models

import (
	"encoding/json"
	"time"
)

// TenantERPConfig describes one tenant's external pricing system. Rows are
// managed by the admin panel; this service only reads them.
type TenantERPConfig struct {
	TenantID      string    `gorm:"primaryKey;type:varchar(64)"`
	EndpointURL   string    `gorm:"type:text;not null"`
	CredentialRef string    `gorm:"type:varchar(128)"`
	TimeoutMS     int       `gorm:"not null;default:5000"`
	Headers       string    `gorm:"type:text"`
	Active        bool      `gorm:"not null;default:true;index"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// Timeout returns the per-call probe/fetch deadline for this tenant.
func (c TenantERPConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CustomHeaders decodes the optional JSON header map. An empty column yields
// an empty map, not an error.
func (c TenantERPConfig) CustomHeaders() (map[string]string, error) {
	if c.Headers == "" {
		return map[string]string{}, nil
	}
	headers := make(map[string]string)
	if err := json.Unmarshal([]byte(c.Headers), &headers); err != nil {
		return nil, err
	}
	return headers, nil
}

// ERPCredential holds a tenant's decrypted API secret, keyed by the opaque
// reference stored on the config row. Encryption at rest is handled upstream.
type ERPCredential struct {
	Ref       string    `gorm:"primaryKey;type:varchar(128)"`
	TenantID  string    `gorm:"type:varchar(64);not null;index"`
	Secret    string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type HealthCheckRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"type:varchar(36);not null;index"`
	TenantID  string `gorm:"type:varchar(64);not null;index"`
	Status    string `gorm:"type:varchar(16);not null;index"`
	LatencyMS *int64
	Detail    string    `gorm:"type:text"`
	CheckedAt time.Time `gorm:"index;not null"`
}

type CacheClearAudit struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Scope       string    `gorm:"type:varchar(16);not null"`
	TenantID    string    `gorm:"type:varchar(64);index"`
	Removed     int       `gorm:"not null"`
	RequestedBy string    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null;index:,length:256"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
}

func (TenantERPConfig) TableName() string {
	return "tenant_erp_configs"
}

func (ERPCredential) TableName() string {
	return "erp_credentials"
}

func (HealthCheckRecord) TableName() string {
	return "erp_health_checks"
}

func (CacheClearAudit) TableName() string {
	return "cache_clear_audits"
}

func (AccessLog) TableName() string {
	return "access_logs"
}
