package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpolicy/civicdata/internal/store/model"
)

// ScrapingRun is the durable bookkeeping side of task execution. Progress
// counters are incremented atomically in the database so concurrent sub-jobs
// of the same run never lose updates, and finalization is idempotent.
type ScrapingRun interface {
	Create(ctx context.Context, run model.ScrapingRun) (*model.ScrapingRun, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ScrapingRun, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	RecordProgress(ctx context.Context, id uuid.UUID, createdDelta, updatedDelta, errorDelta int) error
	Finalize(ctx context.Context, id uuid.UUID, status model.RunStatus, errorMessage *string) error
	List(ctx context.Context, limit int) (model.ScrapingRunList, error)
}

type ScrapingRunStore struct {
	db *gorm.DB
}

var _ ScrapingRun = (*ScrapingRunStore)(nil)

func NewScrapingRunStore(db *gorm.DB) ScrapingRun {
	return &ScrapingRunStore{db: db}
}

func (s *ScrapingRunStore) Create(ctx context.Context, run model.ScrapingRun) (*model.ScrapingRun, error) {
	if run.ID == (uuid.UUID{}) {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	if result := s.db.WithContext(ctx).Create(&run); result.Error != nil {
		return nil, fmt.Errorf("creating scraping run: %w", result.Error)
	}
	return &run, nil
}

func (s *ScrapingRunStore) Get(ctx context.Context, id uuid.UUID) (*model.ScrapingRun, error) {
	var run model.ScrapingRun
	result := s.db.WithContext(ctx).First(&run, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying scraping run: %w", result.Error)
	}
	return &run, nil
}

// MarkRunning moves a pending run to running and restamps started_at with
// the actual execution start. Runs already past pending are left untouched.
func (s *ScrapingRunStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&model.ScrapingRun{}).
		Where("id = ? AND status = ?", id, model.RunStatusPending).
		Updates(map[string]interface{}{
			"status":     model.RunStatusRunning,
			"started_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("marking run as running: %w", result.Error)
	}
	return nil
}

// RecordProgress adds the deltas to the run's counters. The increments happen
// inside the database so interleaved calls from concurrent workers sum
// correctly. Deltas must not be negative: counters never decrease.
func (s *ScrapingRunStore) RecordProgress(ctx context.Context, id uuid.UUID, createdDelta, updatedDelta, errorDelta int) error {
	if createdDelta < 0 || updatedDelta < 0 || errorDelta < 0 {
		return fmt.Errorf("progress deltas must be non-negative: created=%d updated=%d errors=%d", createdDelta, updatedDelta, errorDelta)
	}
	if createdDelta == 0 && updatedDelta == 0 && errorDelta == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&model.ScrapingRun{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"records_created": gorm.Expr("records_created + ?", createdDelta),
			"records_updated": gorm.Expr("records_updated + ?", updatedDelta),
			"errors_count":    gorm.Expr("errors_count + ?", errorDelta),
		})
	if result.Error != nil {
		return fmt.Errorf("recording run progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Finalize moves the run into a terminal status and stamps completed_at.
// Re-finalizing with identical arguments is a no-op; conflicting arguments
// after finalization return ErrRunAlreadyFinalized. In particular a late
// "completed" for an already cancelled run is rejected, which is how a
// cooperatively cancelled worker is prevented from overriding cancellation.
func (s *ScrapingRunStore) Finalize(ctx context.Context, id uuid.UUID, status model.RunStatus, errorMessage *string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run model.ScrapingRun
		if err := tx.First(&run, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("querying scraping run: %w", err)
		}

		if run.Status.IsTerminal() {
			if run.Status == status && equalMessage(run.ErrorMessage, errorMessage) {
				return nil
			}
			return ErrRunAlreadyFinalized
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":       status,
			"completed_at": &now,
		}
		if errorMessage != nil {
			updates["error_message"] = errorMessage
		}
		if err := tx.Model(&model.ScrapingRun{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("finalizing scraping run: %w", err)
		}
		return nil
	})
}

func (s *ScrapingRunStore) List(ctx context.Context, limit int) (model.ScrapingRunList, error) {
	var runs model.ScrapingRunList
	result := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("listing scraping runs: %w", result.Error)
	}
	return runs, nil
}

func equalMessage(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
