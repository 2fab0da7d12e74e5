package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

// ProgressFunc reports incremental counters back to the run. Collectors call
// it as they go; an error means the task is being cancelled and the collector
// must stop.
type ProgressFunc func(createdDelta, updatedDelta, errorsDelta int) error

// Collector does the actual data gathering for one job kind.
type Collector interface {
	Collect(ctx context.Context, progress ProgressFunc) (Result, error)
}

// TestCollector is the smoke-test job. It touches no real data source and
// exists so deployments can verify the scheduling pipeline end to end.
type TestCollector struct {
	// Delay between iterations, long enough for cancellation to land
	// between checkpoints in tests.
	StepDelay time.Duration
	Steps     int
}

func NewTestCollector() *TestCollector {
	return &TestCollector{StepDelay: 10 * time.Millisecond, Steps: 5}
}

func (c *TestCollector) Collect(ctx context.Context, progress ProgressFunc) (Result, error) {
	result := Result{Message: "test task completed"}

	for i := 0; i < c.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(c.StepDelay):
		}
		if err := progress(1, 0, 0); err != nil {
			return result, err
		}
		result.RecordsCreated++
	}
	return result, nil
}

// JurisdictionCollector ingests the bill roster of one jurisdiction level.
// Records are upserted so re-running a job refreshes rather than duplicates,
// and every record is scored so incomplete source data is counted as errors
// instead of silently stored.
type JurisdictionCollector struct {
	kind      JobKind
	store     store.Store
	validator *quality.Validator
}

func NewJurisdictionCollector(kind JobKind, s store.Store, validator *quality.Validator) *JurisdictionCollector {
	return &JurisdictionCollector{kind: kind, store: s, validator: validator}
}

func (c *JurisdictionCollector) Collect(ctx context.Context, progress ProgressFunc) (Result, error) {
	var result Result

	for _, seed := range seedDataForKind(c.kind) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		jurisdiction, err := c.store.Jurisdiction().Upsert(ctx, seed.jurisdiction)
		if err != nil {
			return result, fmt.Errorf("upserting jurisdiction %q: %w", seed.jurisdiction.Name, err)
		}

		for _, bill := range seed.bills {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			bill.JurisdictionID = jurisdiction.ID
			created, err := c.store.Bill().Upsert(ctx, bill)
			if err != nil {
				zap.S().Named("collector").Errorw("failed to upsert bill",
					"identifier", bill.Identifier, "jurisdiction", jurisdiction.Name, "error", err)
				result.ErrorsCount++
				if perr := progress(0, 0, 1); perr != nil {
					return result, perr
				}
				continue
			}

			createdDelta, updatedDelta := 0, 1
			if created {
				createdDelta, updatedDelta = 1, 0
				result.RecordsCreated++
			} else {
				result.RecordsUpdated++
			}

			score := c.validator.ScoreBill(bill, jurisdiction.Type)
			errorsDelta := 0
			if len(score.Issues) > 0 {
				errorsDelta = 1
				result.ErrorsCount++
			}

			if err := progress(createdDelta, updatedDelta, errorsDelta); err != nil {
				return result, err
			}
		}
	}

	result.Message = fmt.Sprintf("%s collection completed", c.kind)
	return result, nil
}

// DefaultCollectors wires one collector per job kind against the store.
func DefaultCollectors(s store.Store, validator *quality.Validator) map[JobKind]Collector {
	return map[JobKind]Collector{
		JobKindTest:       NewTestCollector(),
		JobKindFederal:    NewJurisdictionCollector(JobKindFederal, s, validator),
		JobKindProvincial: NewJurisdictionCollector(JobKindProvincial, s, validator),
		JobKindMunicipal:  NewJurisdictionCollector(JobKindMunicipal, s, validator),
	}
}

type jurisdictionSeed struct {
	jurisdiction model.Jurisdiction
	bills        []model.Bill
}

// seedDataForKind is the bundled roster used until live scrapers are plugged
// in behind the same Collector interface.
func seedDataForKind(kind JobKind) []jurisdictionSeed {
	switch kind {
	case JobKindFederal:
		return []jurisdictionSeed{
			{
				jurisdiction: model.Jurisdiction{
					Name: "Parliament of Canada",
					Type: model.JurisdictionTypeFederal,
					URL:  "https://www.parl.ca",
				},
				bills: []model.Bill{
					{
						Identifier:     "C-5",
						Title:          "An Act respecting the federal framework on housing affordability",
						Summary:        "Establishes a national framework to improve access to affordable housing.",
						Status:         model.BillStatusSecondReading,
						IntroducedDate: datePtr(2026, 2, 10),
						SourceURL:      "https://www.parl.ca/legisinfo/en/bill/45-1/c-5",
					},
					{
						Identifier:     "C-12",
						Title:          "An Act to amend the Income Tax Act",
						Summary:        "Adjusts tax brackets and introduces credits for small businesses.",
						Status:         model.BillStatusCommittee,
						IntroducedDate: datePtr(2026, 3, 4),
						SourceURL:      "https://www.parl.ca/legisinfo/en/bill/45-1/c-12",
					},
					{
						Identifier:     "S-201",
						Title:          "An Act respecting pandemic preparedness",
						Summary:        "",
						Status:         model.BillStatusFirstReading,
						IntroducedDate: datePtr(2026, 1, 28),
						SourceURL:      "https://www.parl.ca/legisinfo/en/bill/45-1/s-201",
					},
				},
			},
		}
	case JobKindProvincial:
		return []jurisdictionSeed{
			{
				jurisdiction: model.Jurisdiction{
					Name:     "Legislative Assembly of Ontario",
					Type:     model.JurisdictionTypeProvincial,
					Province: "ON",
					URL:      "https://www.ola.org",
				},
				bills: []model.Bill{
					{
						Identifier:     "Bill 124",
						Title:          "Healthcare Staffing Accountability Act",
						Summary:        "Requires minimum staffing disclosures from hospital networks.",
						Status:         model.BillStatusSecondReading,
						IntroducedDate: datePtr(2026, 2, 18),
						SourceURL:      "https://www.ola.org/en/legislative-business/bills/current",
					},
				},
			},
			{
				jurisdiction: model.Jurisdiction{
					Name:     "National Assembly of Quebec",
					Type:     model.JurisdictionTypeProvincial,
					Province: "QC",
					URL:      "https://www.assnat.qc.ca",
				},
				bills: []model.Bill{
					{
						Identifier:     "Bill 31",
						Title:          "An Act respecting municipal climate adaptation funding",
						Summary:        "Creates a provincial fund for municipal climate adaptation projects.",
						Status:         model.BillStatusIntroduced,
						IntroducedDate: datePtr(2026, 3, 12),
						SourceURL:      "https://www.assnat.qc.ca/en/travaux-parlementaires/projets-loi",
					},
				},
			},
		}
	case JobKindMunicipal:
		return []jurisdictionSeed{
			{
				jurisdiction: model.Jurisdiction{
					Name:     "City of Toronto",
					Type:     model.JurisdictionTypeMunicipal,
					Province: "ON",
					URL:      "https://www.toronto.ca",
				},
				bills: []model.Bill{
					{
						Identifier:     "2026-044",
						Title:          "Transit expansion budget amendment",
						Summary:        "Amends the capital budget to accelerate the waterfront transit line.",
						Status:         model.BillStatusPassed,
						IntroducedDate: datePtr(2026, 1, 15),
						SourceURL:      "https://www.toronto.ca/city-government/council",
					},
				},
			},
		}
	default:
		return nil
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
