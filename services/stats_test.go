package services

import (
	"strings"
	"testing"

	"polizas-dashboard/models"
)

func TestSummarizeSingularPolicy(t *testing.T) {
	p := policy("1", "A", "2026-01-05", "individual")
	p.Applicants = "2"

	s := Summarize([]*models.PolicyRecord{p})
	if s.PoliciesLabel != "1 Póliza" {
		t.Errorf("PoliciesLabel: got %q, want %q", s.PoliciesLabel, "1 Póliza")
	}
	if s.ApplicantsLabel != "2 Aplicantes" {
		t.Errorf("ApplicantsLabel: got %q, want %q", s.ApplicantsLabel, "2 Aplicantes")
	}
}

func TestSummarizeTreatsBadCountsAsZero(t *testing.T) {
	var policies []*models.PolicyRecord
	for i, a := range []string{"1", "", "tres", "-4", "2.9", " 3 "} {
		p := policy(string(rune('a'+i)), "A", "2026-01-05", "individual")
		p.Applicants = a
		policies = append(policies, p)
	}

	s := Summarize(policies)
	if s.Policies != 6 {
		t.Errorf("Policies: got %d, want 6", s.Policies)
	}
	if s.Applicants != 6 {
		t.Errorf("Applicants: got %d, want 6", s.Applicants)
	}
	if s.PoliciesLabel != "6 Pólizas" || s.ApplicantsLabel != "6 Aplicantes" {
		t.Errorf("labels: got %q / %q", s.PoliciesLabel, s.ApplicantsLabel)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.PoliciesLabel != "0 Pólizas" || s.ApplicantsLabel != "0 Aplicantes" {
		t.Errorf("labels: got %q / %q", s.PoliciesLabel, s.ApplicantsLabel)
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 Aplicantes"},
		{1, "1 Aplicante"},
		{2, "2 Aplicantes"},
	}
	for _, tt := range tests {
		if got := CountLabel(tt.n, "Aplicante", "Aplicantes"); got != tt.want {
			t.Errorf("CountLabel(%d) = %q; want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseApplicantsBounds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2147483647", 2147483647},
		{"2147483648", 0},
		{"3000000000", 0},
		{"3000000000.0", 0},
		{"9223372036854775807", 0},
		{"12.5", 12},
	}
	for _, tt := range tests {
		if got := ParseApplicants(tt.in); got != tt.want {
			t.Errorf("ParseApplicants(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestSummarizeLargeCountsStayPositive(t *testing.T) {
	var policies []*models.PolicyRecord
	for i, a := range []string{"9223372036854775807", "2", "2147483647", "2147483647"} {
		p := policy(string(rune('a'+i)), "A", "2026-01-05", "individual")
		p.Applicants = a
		policies = append(policies, p)
	}

	s := Summarize(policies)
	if want := 2 + 2*2147483647; s.Applicants != want {
		t.Errorf("Applicants: got %d, want %d", s.Applicants, want)
	}
	if strings.HasPrefix(s.ApplicantsLabel, "-") {
		t.Errorf("label went negative: %q", s.ApplicantsLabel)
	}
}
