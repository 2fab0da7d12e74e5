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

type Bill interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	List(ctx context.Context, filter *BillQueryFilter, opts *BillQueryOptions) (model.BillList, error)
	// Upsert inserts the bill or, when a bill with the same jurisdiction and
	// identifier exists, refreshes its mutable fields. The returned flag is
	// true when a new row was created.
	Upsert(ctx context.Context, bill model.Bill) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type BillStore struct {
	db *gorm.DB
}

var _ Bill = (*BillStore)(nil)

func NewBillStore(db *gorm.DB) Bill {
	return &BillStore{db: db}
}

func (s *BillStore) Get(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	result := s.db.WithContext(ctx).First(&bill, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying bill: %w", result.Error)
	}
	return &bill, nil
}

func (s *BillStore) List(ctx context.Context, filter *BillQueryFilter, opts *BillQueryOptions) (model.BillList, error) {
	tx := s.db.WithContext(ctx)
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	var bills model.BillList
	if result := tx.Find(&bills); result.Error != nil {
		return nil, fmt.Errorf("listing bills: %w", result.Error)
	}
	return bills, nil
}

func (s *BillStore) Upsert(ctx context.Context, bill model.Bill) (bool, error) {
	if bill.ID == (uuid.UUID{}) {
		bill.ID = uuid.New()
	}

	var existing model.Bill
	err := s.db.WithContext(ctx).
		First(&existing, "jurisdiction_id = ? AND identifier = ?", bill.JurisdictionID, bill.Identifier).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "jurisdiction_id"}, {Name: "identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "status", "source_url", "updated_at"}),
		}).Create(&bill); result.Error != nil {
			return false, fmt.Errorf("creating bill: %w", result.Error)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("querying bill: %w", err)
	default:
		result := s.db.WithContext(ctx).Model(&model.Bill{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"title":      bill.Title,
				"summary":    bill.Summary,
				"status":     bill.Status,
				"source_url": bill.SourceURL,
			})
		if result.Error != nil {
			return false, fmt.Errorf("updating bill: %w", result.Error)
		}
		return false, nil
	}
}

func (s *BillStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if result := s.db.WithContext(ctx).Model(&model.Bill{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("counting bills: %w", result.Error)
	}
	return count, nil
}
