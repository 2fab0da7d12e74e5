package store

import (
	"gorm.io/gorm"

	"github.com/openpolicy/civicdata/internal/store/model"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type BillQueryFilter BaseQuerier

func NewBillQueryFilter() *BillQueryFilter {
	return &BillQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *BillQueryFilter) ByJurisdictionID(id string) *BillQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("jurisdiction_id = ?", id)
	})
	return f
}

func (f *BillQueryFilter) ByStatus(status model.BillStatus) *BillQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return f
}

// BySearch matches the pattern against title and summary.
func (f *BillQueryFilter) BySearch(pattern string) *BillQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		p := "%" + pattern + "%"
		return tx.Where("title LIKE ? OR summary LIKE ?", p, p)
	})
	return f
}

type BillQueryOptions BaseQuerier

func NewBillQueryOptions() *BillQueryOptions {
	return &BillQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *BillQueryOptions) WithLimit(limit int) *BillQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

func (o *BillQueryOptions) WithOffset(offset int) *BillQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset)
	})
	return o
}

func (o *BillQueryOptions) WithOrder(order string) *BillQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Order(order)
	})
	return o
}

type JurisdictionQueryFilter BaseQuerier

func NewJurisdictionQueryFilter() *JurisdictionQueryFilter {
	return &JurisdictionQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *JurisdictionQueryFilter) ByType(t model.JurisdictionType) *JurisdictionQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("type = ?", t)
	})
	return f
}

func (f *JurisdictionQueryFilter) ByProvince(province string) *JurisdictionQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("province = ?", province)
	})
	return f
}
