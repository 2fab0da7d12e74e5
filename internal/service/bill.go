package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// BillFilter carries the query string parameters of the bill listing.
type BillFilter struct {
	JurisdictionID string
	Status         string
	Search         string
	Limit          int
	Offset         int
}

type BillService struct {
	store store.Store
}

func NewBillService(s store.Store) *BillService {
	return &BillService{store: s}
}

func (s *BillService) ListBills(ctx context.Context, filter BillFilter) (model.BillList, error) {
	storeFilter := store.NewBillQueryFilter()
	if filter.JurisdictionID != "" {
		storeFilter = storeFilter.ByJurisdictionID(filter.JurisdictionID)
	}
	if filter.Status != "" {
		storeFilter = storeFilter.ByStatus(model.BillStatus(filter.Status))
	}
	if filter.Search != "" {
		storeFilter = storeFilter.BySearch(filter.Search)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	opts := store.NewBillQueryOptions().WithOrder("identifier").WithLimit(limit)
	if filter.Offset > 0 {
		opts = opts.WithOffset(filter.Offset)
	}

	bills, err := s.store.Bill().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}

func (s *BillService) GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	bill, err := s.store.Bill().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrBillNotFound(id)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// JurisdictionFilter carries the query string parameters of the
// jurisdiction listing.
type JurisdictionFilter struct {
	Type     string
	Province string
}

func (s *BillService) ListJurisdictions(ctx context.Context, filter JurisdictionFilter) (model.JurisdictionList, error) {
	storeFilter := store.NewJurisdictionQueryFilter()
	if filter.Type != "" {
		storeFilter = storeFilter.ByType(model.JurisdictionType(filter.Type))
	}
	if filter.Province != "" {
		storeFilter = storeFilter.ByProvince(filter.Province)
	}

	jurisdictions, err := s.store.Jurisdiction().List(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list jurisdictions: %w", err)
	}
	return jurisdictions, nil
}

func (s *BillService) GetJurisdiction(ctx context.Context, id uuid.UUID) (*model.Jurisdiction, error) {
	jurisdiction, err := s.store.Jurisdiction().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJurisdictionNotFound(id)
		}
		return nil, fmt.Errorf("failed to get jurisdiction: %w", err)
	}
	return jurisdiction, nil
}

func (s *BillService) GetStats(ctx context.Context) (model.Stats, error) {
	return s.store.Statistics(ctx)
}
