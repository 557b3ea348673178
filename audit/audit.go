// Package audit scores a parsed page against three fixed heuristic rule
// sets: metadata, content structure, and performance hints. Every rule is an
// independent boolean/threshold check with a fixed penalty; a category score
// is 100 minus the sum of triggered penalties, clamped to [0, 100].
package audit

import (
	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/page"
)

// Category identifiers, in report order.
const (
	CategoryMetadata    = "metadata"
	CategoryContent     = "content"
	CategoryPerformance = "performance"
)

// rule is one audit check. check returns whether the rule triggered and a
// finding message (ignored when not triggered).
type rule struct {
	id       string
	severity string
	penalty  int
	check    func(d *page.Document) (bool, string)
}

// Auditor evaluates the fixed rule sets. It is stateless and safe for
// concurrent use.
type Auditor struct {
	rulesets map[string][]rule
}

// New creates an Auditor with the built-in rule sets.
func New() *Auditor {
	return &Auditor{
		rulesets: map[string][]rule{
			CategoryMetadata:    metadataRules,
			CategoryContent:     contentRules,
			CategoryPerformance: performanceRules,
		},
	}
}

// Run scores the document and returns the overall score, its grade, and
// one result card per category in fixed order.
func (a *Auditor) Run(d *page.Document) (int, string, []models.CategoryResult) {
	categories := []string{CategoryMetadata, CategoryContent, CategoryPerformance}

	results := make([]models.CategoryResult, 0, len(categories))
	sum := 0
	for _, cat := range categories {
		r := a.runCategory(cat, d)
		sum += r.Score
		results = append(results, r)
	}

	// Round half up on the mean of the category scores.
	overall := (sum + len(categories)/2) / len(categories)
	return overall, Grade(overall), results
}

// runCategory evaluates one rule set against the document.
func (a *Auditor) runCategory(category string, d *page.Document) models.CategoryResult {
	result := models.CategoryResult{
		Category: category,
		Issues:   []models.Issue{},
	}

	penalty := 0
	for _, r := range a.rulesets[category] {
		triggered, msg := r.check(d)
		if !triggered {
			result.Passed++
			continue
		}
		result.Failed++
		penalty += r.penalty
		result.Issues = append(result.Issues, models.Issue{
			ID:       r.id,
			Severity: r.severity,
			Message:  msg,
			Penalty:  r.penalty,
		})
	}

	result.Score = clampScore(100 - penalty)
	result.Grade = Grade(result.Score)
	return result
}

// clampScore bounds a score to [0, 100].
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// Grade maps a score to its letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 50:
		return "C"
	case score >= 25:
		return "D"
	default:
		return "F"
	}
}
