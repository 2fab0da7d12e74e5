package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/openpolicy/civicdata/internal/store/model"
)

type Store interface {
	ScrapingRun() ScrapingRun
	Bill() Bill
	Jurisdiction() Jurisdiction
	Statistics(ctx context.Context) (model.Stats, error)
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db           *gorm.DB
	scrapingRun  ScrapingRun
	bill         Bill
	jurisdiction Jurisdiction
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:           db,
		scrapingRun:  NewScrapingRunStore(db),
		bill:         NewBillStore(db),
		jurisdiction: NewJurisdictionStore(db),
	}
}

func (s *DataStore) ScrapingRun() ScrapingRun {
	return s.scrapingRun
}

func (s *DataStore) Bill() Bill {
	return s.bill
}

func (s *DataStore) Jurisdiction() Jurisdiction {
	return s.jurisdiction
}

func (s *DataStore) Statistics(ctx context.Context) (model.Stats, error) {
	var stats model.Stats

	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Jurisdiction{}).Count(&stats.TotalJurisdictions).Error; err != nil {
		return model.Stats{}, err
	}
	typeCounts := []struct {
		Type  model.JurisdictionType
		Count int64
	}{}
	if err := db.Model(&model.Jurisdiction{}).Select("type, count(*) as count").Group("type").Scan(&typeCounts).Error; err != nil {
		return model.Stats{}, err
	}
	for _, tc := range typeCounts {
		switch tc.Type {
		case model.JurisdictionTypeFederal:
			stats.FederalJurisdictions = tc.Count
		case model.JurisdictionTypeProvincial:
			stats.ProvincialJurisdictions = tc.Count
		case model.JurisdictionTypeMunicipal:
			stats.MunicipalJurisdictions = tc.Count
		}
	}

	if err := db.Model(&model.Bill{}).Count(&stats.TotalBills).Error; err != nil {
		return model.Stats{}, err
	}
	if err := db.Model(&model.ScrapingRun{}).Count(&stats.TotalRuns).Error; err != nil {
		return model.Stats{}, err
	}

	return stats, nil
}

// InitialMigration creates the schema via gorm. Postgres deployments run the
// goose migrations instead (see pkg/migrations); this path covers sqlite and
// tests.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Jurisdiction{},
		&model.Bill{},
		&model.ScrapingRun{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
