package integrity

import (
	"context"
	"errors"

	"repo-sync/core/provider"
	"repo-sync/core/storage"
	"repo-sync/feature/integrity/checks"
	"repo-sync/feature/repository/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStorageDisabled is returned by storage checks when object storage is not configured.
var ErrStorageDisabled = errors.New("object storage is disabled")

// Service handles integrity checks.
type Service struct {
	client   storage.Client
	bucket   string
	logger   *zap.Logger
	db       *gorm.DB
	registry *provider.Registry
	enabled  []string
}

// NewService creates a new integrity service. client may be nil when object
// storage is disabled.
func NewService(client storage.Client, bucket string, logger *zap.Logger, db *gorm.DB, registry *provider.Registry, enabled []string) *Service {
	return &Service{
		client:   client,
		bucket:   bucket,
		logger:   logger,
		db:       db,
		registry: registry,
		enabled:  enabled,
	}
}

// StorageEnabled reports whether storage checks can run.
func (s *Service) StorageEnabled() bool {
	return s.client != nil
}

// CheckStructure returns a list of missing folders in the manifest bucket.
func (s *Service) CheckStructure(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, ErrStorageDisabled
	}
	return checks.CheckStructure(ctx, s.client, s.bucket)
}

// FixStructure creates the missing folders.
func (s *Service) FixStructure(ctx context.Context, missing []string) error {
	if s.client == nil {
		return ErrStorageDisabled
	}
	return checks.FixStructure(ctx, s.client, s.bucket, s.logger, missing)
}

// CheckServer verifies the repository tables.
func (s *Service) CheckServer() (*checks.ServerReport, error) {
	return checks.CheckServerIntegrity(s.db, models.All()...)
}

// CheckProviders resolves the enabled provider kinds.
func (s *Service) CheckProviders() (*checks.ProvidersReport, error) {
	return checks.CheckProviders(s.registry, s.enabled)
}
