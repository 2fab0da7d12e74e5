package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BillStatus string

const (
	BillStatusIntroduced    BillStatus = "introduced"
	BillStatusFirstReading  BillStatus = "first_reading"
	BillStatusSecondReading BillStatus = "second_reading"
	BillStatusCommittee     BillStatus = "committee"
	BillStatusThirdReading  BillStatus = "third_reading"
	BillStatusPassed        BillStatus = "passed"
	BillStatusRoyalAssent   BillStatus = "royal_assent"
	BillStatusFailed        BillStatus = "failed"
	BillStatusWithdrawn     BillStatus = "withdrawn"
)

type Bill struct {
	ID             uuid.UUID  `gorm:"primaryKey"`
	JurisdictionID uuid.UUID  `gorm:"not null;index;uniqueIndex:uq_bill_identifier"`
	Identifier     string     `gorm:"type:VARCHAR(50);not null;uniqueIndex:uq_bill_identifier"`
	Title          string     `gorm:"type:VARCHAR(500)"`
	Summary        string     `gorm:"type:TEXT"`
	Status         BillStatus `gorm:"type:VARCHAR(50);index"`
	IntroducedDate *time.Time
	SourceURL      string `gorm:"type:VARCHAR(500)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BillList []Bill

func (b Bill) String() string {
	v, _ := json.Marshal(b)
	return string(v)
}
