package services

import (
	"fmt"
	"strings"
	"time"

	"polizas-dashboard/models"
)

// TypeSet is the set of registration types ticked in the filter group.
type TypeSet map[string]struct{}

// NewTypeSet builds a TypeSet, ignoring blank values.
func NewTypeSet(types ...string) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Has reports whether t is selected. A policy without classification never
// matches.
func (s TypeSet) Has(t string) bool {
	if t == "" {
		return false
	}
	_, ok := s[t]
	return ok
}

// NextMonth returns the month index (0 = January) following ref's month,
// wrapping December to January.
func NextMonth(ref time.Time) int {
	return int(ref.Month()) % 12
}

// Aggregate counts policies per operator and month, and per operator.
//
// A policy contributes only when its client's registration type is in
// selected and, with nextMonthOnly, when it becomes effective in the month
// after ref. A policy whose effective date is missing or unparseable is
// skipped with a warning. Operators appear in the order they are first
// counted. The inputs are not modified.
func Aggregate(policies []*models.PolicyRecord, selected TypeSet, nextMonthOnly bool, ref time.Time) *models.Aggregation {
	agg := &models.Aggregation{
		Tally:      models.NewMonthlyOperatorTally(),
		Totals:     models.NewOperatorTotals(),
		Considered: len(policies),
	}
	target := NextMonth(ref)

	for _, p := range policies {
		if p == nil || !selected.Has(p.RegistrationType()) {
			continue
		}

		effective, err := models.ParseDate(p.EffectiveDate)
		if err != nil {
			agg.Warnings = append(agg.Warnings, fmt.Sprintf("policy %s skipped: effective date: %v", p.ID, err))
			continue
		}

		month := int(effective.Month()) - 1
		if nextMonthOnly && month != target {
			continue
		}

		agg.Tally.Add(p.Operator, month)
		agg.Totals.Add(p.Operator)
		agg.Matched++
	}
	return agg
}
