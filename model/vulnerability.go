package model

import "time"

// Entity is any domain object with a lifecycle reconstructed from the
// historic log.
type Entity interface {
	EntityID() string
	Type() string
}

// Vulnerability is a typed entity assembled from a vulnerability
// partition: immutable metadata plus the latest record of each series.
type Vulnerability struct {
	ID             string    `json:"id"`
	GroupName      string    `json:"group_name"`
	OrganizationID string    `json:"organization_id"`
	VulnType       string    `json:"vuln_type"` // ports, lines or inputs
	Where          string    `json:"where"`
	Specific       string    `json:"specific"`
	Source         string    `json:"source"`
	CVSSVector     string    `json:"cvss_vector,omitempty"`
	SeverityScore  float64   `json:"severity_score"`
	Severity       string    `json:"severity"` // rating label derived from the score
	CreatedBy      string    `json:"created_by"`
	CreatedDate    time.Time `json:"created_date"`

	State        StateEntry         `json:"state"`
	Treatment    TreatmentEntry     `json:"treatment"`
	Verification *VerificationEntry `json:"verification,omitempty"`
	ZeroRisk     *ZeroRiskEntry     `json:"zero_risk,omitempty"`
}

// EntityID returns the vulnerability uuid.
func (v Vulnerability) EntityID() string { return v.ID }

// Type returns the metadata type discriminator.
func (v Vulnerability) Type() string { return TypeVulnerability }

// MetadataAttributes renders the immutable metadata row attributes.
// Re-deriving these from an assembled entity reproduces the stored
// metadata exactly.
func (v Vulnerability) MetadataAttributes() map[string]any {
	attrs := map[string]any{
		"type":            TypeVulnerability,
		"group_name":      v.GroupName,
		"organization_id": v.OrganizationID,
		"vuln_type":       v.VulnType,
		"where":           v.Where,
		"specific":        v.Specific,
		"source":          v.Source,
		"severity_score":  v.SeverityScore,
		"created_by":      v.CreatedBy,
		"created_date":    FormatTime(v.CreatedDate),
	}
	if v.CVSSVector != "" {
		attrs["cvss_vector"] = v.CVSSVector
	}
	return attrs
}

// VulnerabilityHistory is the full per-entity event log slice consumed
// by the time-windowed aggregator: every STATE and TREATMENT record,
// chronologically ordered.
type VulnerabilityHistory struct {
	ID         string
	States     []StateEntry
	Treatments []TreatmentEntry
}
