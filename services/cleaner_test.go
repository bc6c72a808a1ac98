package services

import (
	"testing"

	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func str(s string) *string { return &s }

func TestCleanerDropsEmptyAndDuplicateIDs(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawPolicyRow{
		{ID: "", Operator: str("A")},
		{ID: "P1", Operator: str("A")},
		{ID: " P1 ", Operator: str("B")},
		{ID: "P2", Operator: str("B")},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(cleaned))
	}
	if cleaned[0].Operator != "A" {
		t.Errorf("first occurrence should win, got operator %q", cleaned[0].Operator)
	}
}

func TestCleanerNormalisesText(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawPolicyRow{{
		ID:               "P1",
		EffectiveDate:    str(" 2026-01-15 "),
		Operator:         str("  Seguros \t del   Sur "),
		Applicants:       str(" 3 "),
		RegistrationType: str(" individual\n"),
	}}

	p := c.Clean(raw)[0]
	if p.Operator != "Seguros del Sur" {
		t.Errorf("Operator: got %q", p.Operator)
	}
	if p.EffectiveDate != "2026-01-15" {
		t.Errorf("EffectiveDate: got %q", p.EffectiveDate)
	}
	if p.Applicants != "3" {
		t.Errorf("Applicants: got %q", p.Applicants)
	}
	if p.RegistrationType() != "individual" {
		t.Errorf("RegistrationType: got %q", p.RegistrationType())
	}
}

func TestCleanerAbsentClient(t *testing.T) {
	c := NewCleaner(newTestLogger())
	cleaned := c.Clean([]*models.RawPolicyRow{{ID: "P1"}})
	if cleaned[0].Client != nil {
		t.Errorf("expected nil client for empty join, got %+v", cleaned[0].Client)
	}
	if cleaned[0].RegistrationType() != "" {
		t.Errorf("absent client must have no classification")
	}
}

func TestCleanerKeepsUnparseableValues(t *testing.T) {
	c := NewCleaner(newTestLogger())
	cleaned := c.Clean([]*models.RawPolicyRow{{ID: "P1", EffectiveDate: str("ayer"), Applicants: str("dos")}})
	if cleaned[0].EffectiveDate != "ayer" || cleaned[0].Applicants != "dos" {
		t.Errorf("raw values must pass through, got %+v", cleaned[0])
	}
}

func TestCleanerSkipsNilRows(t *testing.T) {
	c := NewCleaner(newTestLogger())
	cleaned := c.Clean([]*models.RawPolicyRow{nil, {ID: "P1"}, nil})
	if len(cleaned) != 1 || cleaned[0].ID != "P1" {
		t.Errorf("expected only P1, got %+v", cleaned)
	}
}
