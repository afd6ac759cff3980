package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"repo-sync/core/provider"
	"repo-sync/core/reconcile"
	"repo-sync/feature/repository/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRecordMissing is returned when updating a record that no longer exists.
var ErrRecordMissing = errors.New("repository record missing")

// GormStore persists repository records and declared URLs with GORM.
type GormStore struct {
	db *gorm.DB

	// claims serializes URL ownership checks with the write that follows them.
	claims sync.Mutex
}

// NewGormStore creates a store on db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the feature tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate repository tables: %w", err)
	}
	return nil
}

func toRecord(m models.Repository) reconcile.Record {
	return reconcile.Record{
		ID:    m.ID,
		Owner: m.Owner,
		Hash:  m.Hash,
		Metadata: provider.Metadata{
			MachineName:   m.MachineName,
			Label:         m.Label,
			Description:   m.Description,
			NumOpenIssues: m.NumOpenIssues,
			Source:        m.Source,
			URL:           m.URL,
		},
	}
}

func toModel(rec *reconcile.Record) models.Repository {
	return models.Repository{
		ID:            rec.ID,
		Owner:         rec.Owner,
		MachineName:   rec.MachineName,
		Source:        rec.Source,
		Label:         rec.Label,
		Description:   rec.Description,
		NumOpenIssues: rec.NumOpenIssues,
		URL:           rec.URL,
		Hash:          rec.Hash,
	}
}

// Find returns the record for (owner, machineName, source), or nil.
func (s *GormStore) Find(ctx context.Context, owner, machineName, source string) (*reconcile.Record, error) {
	var m models.Repository
	err := s.db.WithContext(ctx).
		Where("owner = ? AND machine_name = ? AND source = ?", owner, machineName, source).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := toRecord(m)
	return &rec, nil
}

// ListByOwner returns the records of owner ordered by id.
func (s *GormStore) ListByOwner(ctx context.Context, owner string) ([]reconcile.Record, error) {
	rows, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Record, 0, len(rows))
	for _, m := range rows {
		out = append(out, toRecord(m))
	}
	return out, nil
}

// List returns the models of owner ordered by id.
func (s *GormStore) List(ctx context.Context, owner string) ([]models.Repository, error) {
	var rows []models.Repository
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// URLOwnedByOther reports whether url belongs to an owner other than owner.
func (s *GormStore) URLOwnedByOther(ctx context.Context, url, owner string) (bool, error) {
	return urlOwnedByOther(s.db.WithContext(ctx), url, owner)
}

func urlOwnedByOther(db *gorm.DB, url, owner string) (bool, error) {
	var count int64
	err := db.Model(&models.Repository{}).
		Where("url = ? AND owner <> ?", url, owner).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// claim runs write in a transaction after checking that rec.URL is not held by
// another owner. On MySQL the matching rows and gap stay locked until commit.
func (s *GormStore) claim(ctx context.Context, rec *reconcile.Record, write func(tx *gorm.DB) error) error {
	s.claims.Lock()
	defer s.claims.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := urlOwnedByOther(tx.Clauses(clause.Locking{Strength: "UPDATE"}), rec.URL, rec.Owner)
		if err != nil {
			return err
		}
		if owned {
			return fmt.Errorf("%w: %s", provider.ErrDuplicateOwnership, rec.URL)
		}
		return write(tx)
	})
}

// Create inserts rec and sets its ID. It fails with
// provider.ErrDuplicateOwnership when another owner holds rec.URL.
func (s *GormStore) Create(ctx context.Context, rec *reconcile.Record) error {
	m := toModel(rec)
	m.ID = 0
	err := s.claim(ctx, rec, func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	if err != nil {
		return err
	}
	rec.ID = m.ID
	return nil
}

// Update overwrites the mutable fields of rec, with the same ownership rule
// as Create.
func (s *GormStore) Update(ctx context.Context, rec *reconcile.Record) error {
	return s.claim(ctx, rec, func(tx *gorm.DB) error {
		res := tx.Model(&models.Repository{ID: rec.ID}).Updates(map[string]any{
			"label":           rec.Label,
			"description":     rec.Description,
			"num_open_issues": rec.NumOpenIssues,
			"url":             rec.URL,
			"hash":            rec.Hash,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", ErrRecordMissing, rec.ID)
		}
		return nil
	})
}

// Delete removes rec.
func (s *GormStore) Delete(ctx context.Context, rec *reconcile.Record) error {
	return s.db.WithContext(ctx).Delete(&models.Repository{}, rec.ID).Error
}

// URLs returns the URLs declared by owner in declaration order.
func (s *GormStore) URLs(ctx context.Context, owner string) ([]string, error) {
	var urls []string
	err := s.db.WithContext(ctx).Model(&models.OwnerURL{}).
		Where("owner = ?", owner).
		Order("position").
		Pluck("url", &urls).Error
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// SetURLs replaces the URLs declared by owner. Blank entries are dropped.
func (s *GormStore) SetURLs(ctx context.Context, owner string, urls []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&models.OwnerURL{}).Error; err != nil {
			return err
		}

		rows := make([]models.OwnerURL, 0, len(urls))
		for _, u := range urls {
			if u = strings.TrimSpace(u); u == "" {
				continue
			}
			rows = append(rows, models.OwnerURL{Owner: owner, Position: len(rows), URL: u})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// Owners returns every owner with declared URLs or stored records, sorted.
func (s *GormStore) Owners(ctx context.Context) ([]string, error) {
	var declared, stored []string
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.OwnerURL{}).Distinct().Pluck("owner", &declared).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Repository{}).Distinct().Pluck("owner", &stored).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(declared)+len(stored))
	owners := make([]string, 0, len(declared)+len(stored))
	for _, o := range append(declared, stored...) {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners, nil
}
