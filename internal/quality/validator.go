// Package quality scores legislative records for completeness and flags
// records touching high-importance topics. Scoring is pure: the same record
// always produces the same result.
package quality

import (
	"regexp"
	"strings"

	"github.com/openpolicy/civicdata/internal/store/model"
)

// Fixed penalties per failed completeness check. The floor is 0.
const (
	penaltyMissingTitle      = 25
	penaltyMissingIdentifier = 25
	penaltyMissingStatus     = 20
	penaltyMissingSummary    = 20
	penaltyBadIdentifier     = 10
)

// DefaultCriticalKeywords flags bills that deserve review priority even when
// their data quality is poor. Matching is case-insensitive substring.
var DefaultCriticalKeywords = []string{
	"budget",
	"tax",
	"healthcare",
	"health care",
	"emergency",
	"climate",
	"carbon",
	"pandemic",
}

// identifierFormats holds the expected bill identifier shape per jurisdiction
// tier. Federal bills are numbered C-n (Commons) or S-n (Senate).
var identifierFormats = map[model.JurisdictionType]*regexp.Regexp{
	model.JurisdictionTypeFederal:    regexp.MustCompile(`^[CS]-[0-9]+$`),
	model.JurisdictionTypeProvincial: regexp.MustCompile(`^(Bill\s)?[0-9]+$`),
}

// ScoreResult is the outcome of validating one record. Issues and
// Recommendations are parallel lists in a fixed deterministic order.
type ScoreResult struct {
	RecordID        string   `json:"record_id"`
	QualityScore    int      `json:"quality_score"`
	IsCritical      bool     `json:"is_critical"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

type Validator struct {
	keywords []string
}

func NewValidator(keywords []string) *Validator {
	if len(keywords) == 0 {
		keywords = DefaultCriticalKeywords
	}
	return &Validator{keywords: keywords}
}

// ScoreBill validates a bill against the completeness and criticality
// heuristics. Criticality never changes the score; it is reported separately
// so critical-but-incomplete records can be prioritized for review.
func (v *Validator) ScoreBill(bill model.Bill, jurisdictionType model.JurisdictionType) ScoreResult {
	result := ScoreResult{
		RecordID:        bill.ID.String(),
		QualityScore:    100,
		Issues:          []string{},
		Recommendations: []string{},
	}

	addIssue := func(penalty int, issue, recommendation string) {
		result.QualityScore -= penalty
		result.Issues = append(result.Issues, issue)
		result.Recommendations = append(result.Recommendations, recommendation)
	}

	// Checks run in a fixed order: title, identifier, status, summary, format.
	if strings.TrimSpace(bill.Title) == "" {
		addIssue(penaltyMissingTitle, "missing title", "add the official bill title")
	}
	if strings.TrimSpace(bill.Identifier) == "" {
		addIssue(penaltyMissingIdentifier, "missing identifier", "add the bill identifier")
	}
	if strings.TrimSpace(string(bill.Status)) == "" {
		addIssue(penaltyMissingStatus, "missing status", "set the legislative status")
	}
	if strings.TrimSpace(bill.Summary) == "" {
		addIssue(penaltyMissingSummary, "missing summary", "add summary text")
	}
	if format, ok := identifierFormats[jurisdictionType]; ok {
		if id := strings.TrimSpace(bill.Identifier); id != "" && !format.MatchString(id) {
			addIssue(penaltyBadIdentifier, "identifier format invalid", "use the jurisdiction's identifier format")
		}
	}

	if result.QualityScore < 0 {
		result.QualityScore = 0
	}

	result.IsCritical = v.isCritical(bill.Title, bill.Summary)
	return result
}

func (v *Validator) isCritical(title, summary string) bool {
	haystack := strings.ToLower(title + " " + summary)
	for _, kw := range v.keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
