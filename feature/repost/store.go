package repost

import (
	"context"
	"errors"
	"fmt"

	"repost-manager/feature/repost/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable cache of repost records, scoped to one user.
// Implementations own their concurrency control.
type Store interface {
	// Upsert inserts or replaces one record.
	Upsert(ctx context.Context, rec models.Record) error
	// UpsertBatch inserts or replaces records in one batch.
	UpsertBatch(ctx context.Context, recs []models.Record) error
	// Delete removes the record for a content ref. Returns true if a row
	// was removed.
	Delete(ctx context.Context, contentRef string) (bool, error)
	// Get returns the record for a content ref, or nil if absent.
	Get(ctx context.Context, contentRef string) (*models.Record, error)
	// GetEventID returns the assertion event id for a content ref, or ""
	// if absent.
	GetEventID(ctx context.Context, contentRef string) (string, error)
	// GetAll returns every record for the user.
	GetAll(ctx context.Context) ([]models.Record, error)
	// GetAllContentRefs returns the set of reposted content refs.
	GetAllContentRefs(ctx context.Context) (map[string]struct{}, error)
	// Contains reports whether a content ref has a record.
	Contains(ctx context.Context, contentRef string) (bool, error)
	// ClearAll removes every record for the user.
	ClearAll(ctx context.Context) error
}

// GormStore persists repost records through gorm, scoped by user pubkey.
type GormStore struct {
	db     *gorm.DB
	pubkey string
}

// NewGormStore creates a record store for the given user.
func NewGormStore(db *gorm.DB, pubkey string) *GormStore {
	return &GormStore{db: db, pubkey: pubkey}
}

// Migrate creates or updates the repost record schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Record{}); err != nil {
		return fmt.Errorf("failed to migrate repost records: %w", err)
	}
	return nil
}

func (s *GormStore) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("pubkey = ?", s.pubkey)
}

// Upsert inserts or replaces one record.
func (s *GormStore) Upsert(ctx context.Context, rec models.Record) error {
	rec.Pubkey = s.pubkey
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pubkey"}, {Name: "content_ref"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ContentRef, err)
	}
	return nil
}

// UpsertBatch inserts or replaces records in one batch.
func (s *GormStore) UpsertBatch(ctx context.Context, recs []models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	batch := make([]models.Record, len(recs))
	for i, rec := range recs {
		rec.Pubkey = s.pubkey
		batch[i] = rec
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pubkey"}, {Name: "content_ref"}},
		UpdateAll: true,
	}).Create(&batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(recs), err)
	}
	return nil
}

// Delete removes the record for a content ref.
func (s *GormStore) Delete(ctx context.Context, contentRef string) (bool, error) {
	result := s.scoped(ctx).Where("content_ref = ?", contentRef).Delete(&models.Record{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete record %s: %w", contentRef, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Get returns the record for a content ref, or nil if absent.
func (s *GormStore) Get(ctx context.Context, contentRef string) (*models.Record, error) {
	var rec models.Record
	err := s.scoped(ctx).Where("content_ref = ?", contentRef).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", contentRef, err)
	}
	return &rec, nil
}

// GetEventID returns the assertion event id for a content ref.
func (s *GormStore) GetEventID(ctx context.Context, contentRef string) (string, error) {
	rec, err := s.Get(ctx, contentRef)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.AssertionEventID, nil
}

// GetAll returns every record for the user.
func (s *GormStore) GetAll(ctx context.Context) ([]models.Record, error) {
	var recs []models.Record
	if err := s.scoped(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return recs, nil
}

// GetAllContentRefs returns the set of reposted content refs.
func (s *GormStore) GetAllContentRefs(ctx context.Context) (map[string]struct{}, error) {
	var refs []string
	err := s.scoped(ctx).Model(&models.Record{}).Pluck("content_ref", &refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load content refs: %w", err)
	}
	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		set[ref] = struct{}{}
	}
	return set, nil
}

// Contains reports whether a content ref has a record.
func (s *GormStore) Contains(ctx context.Context, contentRef string) (bool, error) {
	var count int64
	err := s.scoped(ctx).Model(&models.Record{}).Where("content_ref = ?", contentRef).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check record %s: %w", contentRef, err)
	}
	return count > 0, nil
}

// ClearAll removes every record for the user.
func (s *GormStore) ClearAll(ctx context.Context) error {
	if err := s.scoped(ctx).Delete(&models.Record{}).Error; err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}
