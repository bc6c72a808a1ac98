package services

import (
	"strings"
	"unicode"

	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

// Cleaner transforms raw record-source rows into policy records.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops rows without an ID or with a repeated ID and normalises the
// text columns. Dates and applicant counts are left as delivered.
func (c *Cleaner) Clean(raw []*models.RawPolicyRow) []*models.PolicyRecord {
	seen := make(map[string]struct{})
	result := make([]*models.PolicyRecord, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping policy with empty ID (operator %q)", deref(r.Operator))
			continue
		}

		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate policy skipped: %s", id)
			continue
		}
		seen[id] = struct{}{}

		policy := &models.PolicyRecord{
			ID:              id,
			EffectiveDate:   strings.TrimSpace(deref(r.EffectiveDate)),
			CoverageEndDate: strings.TrimSpace(deref(r.CoverageEndDate)),
			Operator:        normaliseText(deref(r.Operator)),
			Applicants:      strings.TrimSpace(deref(r.Applicants)),
			Status:          normaliseText(deref(r.Status)),
			Client:          buildClient(r),
		}

		result = append(result, policy)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d policies (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// buildClient returns nil when the join produced no client at all.
func buildClient(r *models.RawPolicyRow) *models.Client {
	if r.ClientID == nil && r.ClientName == nil && r.RegistrationType == nil {
		return nil
	}
	return &models.Client{
		ID:               strings.TrimSpace(deref(r.ClientID)),
		Name:             normaliseText(deref(r.ClientName)),
		RegistrationType: normaliseText(deref(r.RegistrationType)),
	}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
