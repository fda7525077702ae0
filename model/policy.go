package model

// OrgPolicy is the per-organization treatment policy consumed by the
// transition validator. Nil pointer fields mean "no limit configured".
type OrgPolicy struct {
	OrganizationID        string  `json:"organization_id" yaml:"organization_id"`
	MaxAcceptanceDays     *int    `json:"max_acceptance_days" yaml:"max_acceptance_days"`
	MinAcceptanceSeverity float64 `json:"min_acceptance_severity" yaml:"min_acceptance_severity"`
	MaxAcceptanceSeverity float64 `json:"max_acceptance_severity" yaml:"max_acceptance_severity"`
	MaxNumberAcceptations *int    `json:"max_number_acceptations" yaml:"max_number_acceptations"`
}

// DefaultOrgPolicy is the policy applied when an organization has no
// stored policy row and no configured defaults: severity unrestricted
// over the full CVSS range, window and count unlimited.
func DefaultOrgPolicy() OrgPolicy {
	return OrgPolicy{
		MinAcceptanceSeverity: 0.0,
		MaxAcceptanceSeverity: 10.0,
	}
}

// TrackingPoint is one chart point: x is the Monday of an ISO week, y
// the count for that week.
type TrackingPoint struct {
	X string `json:"x"`
	Y int    `json:"y"`
}

// TrackingSeries is one charted category over the emitted weeks.
type TrackingSeries struct {
	Category string          `json:"category"`
	Points   []TrackingPoint `json:"points"`
}

// Tracking category names.
const (
	CategoryFound         = "found"
	CategoryClosed        = "closed"
	CategoryAccepted      = "accepted"
	CategoryOpened        = "opened"
	CategoryAssumedClosed = "assumed_closed"
)
