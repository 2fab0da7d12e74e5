package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

// ValidationResult is the scoring of one bill, carrying enough of the bill
// itself that a consumer can act on the result without a second lookup.
type ValidationResult struct {
	BillID          string   `json:"bill_id"`
	Identifier      string   `json:"identifier"`
	Title           string   `json:"title"`
	QualityScore    int      `json:"quality_score"`
	IsCritical      bool     `json:"is_critical"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// ValidationReport aggregates the scoring of one record set.
type ValidationReport struct {
	TotalRecords  int                `json:"total_records"`
	AverageScore  int                `json:"average_score"`
	CriticalCount int                `json:"critical_count"`
	IssueCount    int                `json:"issue_count"`
	Results       []ValidationResult `json:"results"`
}

type ValidationService struct {
	store     store.Store
	validator *quality.Validator
}

func NewValidationService(s store.Store, validator *quality.Validator) *ValidationService {
	return &ValidationService{store: s, validator: validator}
}

// ValidateFederalBills scores every bill belonging to a federal jurisdiction.
func (s *ValidationService) ValidateFederalBills(ctx context.Context) (*ValidationReport, error) {
	return s.validateByType(ctx, model.JurisdictionTypeFederal)
}

func (s *ValidationService) validateByType(ctx context.Context, jurisdictionType model.JurisdictionType) (*ValidationReport, error) {
	jurisdictions, err := s.store.Jurisdiction().List(ctx, store.NewJurisdictionQueryFilter().ByType(jurisdictionType))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s jurisdictions: %w", jurisdictionType, err)
	}

	report := &ValidationReport{Results: []ValidationResult{}}
	scoreSum := 0

	for _, jurisdiction := range jurisdictions {
		bills, err := s.store.Bill().List(ctx, store.NewBillQueryFilter().ByJurisdictionID(jurisdiction.ID.String()), store.NewBillQueryOptions().WithOrder("identifier"))
		if err != nil {
			return nil, fmt.Errorf("failed to list bills for jurisdiction %s: %w", jurisdiction.ID, err)
		}

		for _, bill := range bills {
			score := s.validator.ScoreBill(bill, jurisdiction.Type)
			report.Results = append(report.Results, ValidationResult{
				BillID:          bill.ID.String(),
				Identifier:      bill.Identifier,
				Title:           bill.Title,
				QualityScore:    score.QualityScore,
				IsCritical:      score.IsCritical,
				Issues:          score.Issues,
				Recommendations: score.Recommendations,
			})
			report.TotalRecords++
			scoreSum += score.QualityScore
			if score.IsCritical {
				report.CriticalCount++
			}
			if len(score.Issues) > 0 {
				report.IssueCount++
			}
		}
	}

	if report.TotalRecords > 0 {
		report.AverageScore = scoreSum / report.TotalRecords
	}
	return report, nil
}

// RunBatchValidation scores the whole corpus. Invoked periodically so data
// quality drift shows up in the logs without anyone hitting the API.
func (s *ValidationService) RunBatchValidation(ctx context.Context) error {
	logger := zap.S().Named("validation")

	for _, jurisdictionType := range []model.JurisdictionType{
		model.JurisdictionTypeFederal,
		model.JurisdictionTypeProvincial,
		model.JurisdictionTypeMunicipal,
	} {
		report, err := s.validateByType(ctx, jurisdictionType)
		if err != nil {
			return err
		}
		if report.TotalRecords == 0 {
			continue
		}
		logger.Infow("batch validation finished",
			"jurisdiction_type", jurisdictionType,
			"total_records", report.TotalRecords,
			"average_score", report.AverageScore,
			"critical_count", report.CriticalCount,
			"records_with_issues", report.IssueCount)
	}
	return nil
}
