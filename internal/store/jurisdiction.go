package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openpolicy/civicdata/internal/store/model"
)

type Jurisdiction interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Jurisdiction, error)
	List(ctx context.Context, filter *JurisdictionQueryFilter) (model.JurisdictionList, error)
	Upsert(ctx context.Context, jurisdiction model.Jurisdiction) (*model.Jurisdiction, error)
}

type JurisdictionStore struct {
	db *gorm.DB
}

var _ Jurisdiction = (*JurisdictionStore)(nil)

func NewJurisdictionStore(db *gorm.DB) Jurisdiction {
	return &JurisdictionStore{db: db}
}

func (s *JurisdictionStore) Get(ctx context.Context, id uuid.UUID) (*model.Jurisdiction, error) {
	var jurisdiction model.Jurisdiction
	result := s.db.WithContext(ctx).First(&jurisdiction, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying jurisdiction: %w", result.Error)
	}
	return &jurisdiction, nil
}

func (s *JurisdictionStore) List(ctx context.Context, filter *JurisdictionQueryFilter) (model.JurisdictionList, error) {
	tx := s.db.WithContext(ctx)
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	var jurisdictions model.JurisdictionList
	if result := tx.Order("name").Find(&jurisdictions); result.Error != nil {
		return nil, fmt.Errorf("listing jurisdictions: %w", result.Error)
	}
	return jurisdictions, nil
}

// Upsert inserts the jurisdiction or, when one with the same name and type
// exists, refreshes its mutable fields. The returned row always carries the
// canonical id so callers can safely attach bills to it.
func (s *JurisdictionStore) Upsert(ctx context.Context, jurisdiction model.Jurisdiction) (*model.Jurisdiction, error) {
	if jurisdiction.ID == (uuid.UUID{}) {
		jurisdiction.ID = uuid.New()
	}

	var existing model.Jurisdiction
	err := s.db.WithContext(ctx).
		First(&existing, "name = ? AND type = ?", jurisdiction.Name, jurisdiction.Type).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"province", "url", "updated_at"}),
		}).Create(&jurisdiction); result.Error != nil {
			return nil, fmt.Errorf("creating jurisdiction: %w", result.Error)
		}
		return &jurisdiction, nil
	case err != nil:
		return nil, fmt.Errorf("querying jurisdiction: %w", err)
	default:
		result := s.db.WithContext(ctx).Model(&model.Jurisdiction{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"province": jurisdiction.Province,
				"url":      jurisdiction.URL,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("updating jurisdiction: %w", result.Error)
		}
		existing.Province = jurisdiction.Province
		existing.URL = jurisdiction.URL
		return &existing, nil
	}
}
