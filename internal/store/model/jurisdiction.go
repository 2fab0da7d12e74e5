package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JurisdictionType string

const (
	JurisdictionTypeFederal    JurisdictionType = "federal"
	JurisdictionTypeProvincial JurisdictionType = "provincial"
	JurisdictionTypeMunicipal  JurisdictionType = "municipal"
)

type Jurisdiction struct {
	ID        uuid.UUID        `gorm:"primaryKey"`
	Name      string           `gorm:"type:VARCHAR(255);not null;uniqueIndex:uq_jurisdiction_name"`
	Type      JurisdictionType `gorm:"type:VARCHAR(50);not null;index;uniqueIndex:uq_jurisdiction_name"`
	Province  string           `gorm:"type:VARCHAR(2);index"`
	URL       string           `gorm:"type:VARCHAR(500)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type JurisdictionList []Jurisdiction

func (j Jurisdiction) String() string {
	v, _ := json.Marshal(j)
	return string(v)
}

// Stats holds the aggregate counts served by the stats endpoint.
type Stats struct {
	TotalJurisdictions      int64 `json:"total_jurisdictions"`
	FederalJurisdictions    int64 `json:"federal_jurisdictions"`
	ProvincialJurisdictions int64 `json:"provincial_jurisdictions"`
	MunicipalJurisdictions  int64 `json:"municipal_jurisdictions"`
	TotalBills              int64 `json:"total_bills"`
	TotalRuns               int64 `json:"total_scraping_runs"`
}
