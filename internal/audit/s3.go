package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/coverly/erp-bridge/internal/config"
	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/sirupsen/logrus"
)

// S3Exporter uploads JSON audit records to a bucket for the compliance
// export pipeline. Keys are date-partitioned so exports can be pruned by
// lifecycle policy.
type S3Exporter struct {
	uploader *s3manager.Uploader
	bucket   string
	log      *logrus.Entry
}

func NewS3Exporter(logger *logrus.Logger, cfg *config.Config) *S3Exporter {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.AuditS3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AuditS3AccessKey, cfg.AuditS3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if cfg.AuditS3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.AuditS3Endpoint)
	}

	sess := session.Must(session.NewSession(awsConfig))

	return &S3Exporter{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.AuditS3Bucket,
		log:      logger.WithField("component", "audit_exporter"),
	}
}

func (e *S3Exporter) RecordCacheClear(ctx context.Context, rec models.CacheClearAudit) error {
	key := fmt.Sprintf("audits/cache-clear/%s/%s.json", rec.CreatedAt.Format("2006-01-02"), rec.ID)
	return e.upload(ctx, key, rec)
}

func (e *S3Exporter) RecordHealthRun(ctx context.Context, summary health.Summary) error {
	key := fmt.Sprintf("audits/health-runs/%s/%s.json", summary.StartedAt.Format("2006-01-02"), summary.RunID)
	return e.upload(ctx, key, summary)
}

func (e *S3Exporter) upload(ctx context.Context, key string, record interface{}) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}

	start := time.Now()
	_, err = e.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 audit upload failed: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"key":      key,
		"duration": time.Since(start),
	}).Debug("Exported audit record")
	return nil
}
