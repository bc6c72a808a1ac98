package models

import "time"

// RawPolicyRow holds one row exactly as a record source delivers it: the policy
// columns plus the LEFT JOINed client columns, any of which may be NULL.
type RawPolicyRow struct {
	ID               string
	EffectiveDate    *string
	CoverageEndDate  *string
	Operator         *string
	Applicants       *string
	Status           *string
	ClientID         *string
	ClientName       *string
	RegistrationType *string
}

// Client is the reference data attached to a policy.
type Client struct {
	ID               string
	Name             string
	RegistrationType string
}

// PolicyRecord is one policy of the session snapshot. Dates and the applicant
// count keep their textual form; a bad value only degrades that record.
type PolicyRecord struct {
	ID              string
	EffectiveDate   string
	CoverageEndDate string
	Operator        string
	Applicants      string
	Status          string
	Client          *Client
}

// RegistrationType returns the client classification, or "" when the policy
// has no client or the client has no classification.
func (p *PolicyRecord) RegistrationType() string {
	if p.Client == nil {
		return ""
	}
	return p.Client.RegistrationType
}

// Stats are the two scalar figures shown next to the chart.
type Stats struct {
	Policies        int    `json:"policies"`
	Applicants      int    `json:"applicants"`
	PoliciesLabel   string `json:"policies_label"`
	ApplicantsLabel string `json:"applicants_label"`
}

// Snapshot is the read-only set of records fetched for one session.
type Snapshot struct {
	Policies  []*PolicyRecord
	FetchedAt time.Time
}
