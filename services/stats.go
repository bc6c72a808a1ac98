package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"polizas-dashboard/models"
)

// maxApplicants bounds a single policy's applicant count.
const maxApplicants = math.MaxInt32

// Summarize counts the policies of the snapshot and their applicants. The
// applicant total saturates at math.MaxInt.
func Summarize(policies []*models.PolicyRecord) models.Stats {
	applicants := 0
	for _, p := range policies {
		if p == nil {
			continue
		}
		n := ParseApplicants(p.Applicants)
		if applicants > math.MaxInt-n {
			applicants = math.MaxInt
			continue
		}
		applicants += n
	}
	return models.Stats{
		Policies:        len(policies),
		Applicants:      applicants,
		PoliciesLabel:   CountLabel(len(policies), "Póliza", "Pólizas"),
		ApplicantsLabel: CountLabel(applicants, "Aplicante", "Aplicantes"),
	}
}

// ParseApplicants reads an applicant count. Missing, non-numeric, negative and
// implausibly large values count as zero; fractional values are truncated.
func ParseApplicants(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > maxApplicants {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxApplicants {
		return 0
	}
	return int(f)
}

// CountLabel renders "1 <singular>" or "<n> <plural>".
func CountLabel(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
