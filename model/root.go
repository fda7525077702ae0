package model

import "time"

// GitRoot is a typed entity with two historic series: lifecycle STATE
// and the CLON series tracking repository synchronization.
type GitRoot struct {
	ID             string    `json:"id"`
	GroupName      string    `json:"group_name"`
	OrganizationID string    `json:"organization_id"`
	URL            string    `json:"url"`
	Branch         string    `json:"branch"`
	Nickname       string    `json:"nickname"`
	CreatedBy      string    `json:"created_by"`
	CreatedDate    time.Time `json:"created_date"`

	State   StateEntry `json:"state"`
	Cloning CloneEntry `json:"cloning"`
}

// EntityID returns the root uuid.
func (r GitRoot) EntityID() string { return r.ID }

// Type returns the metadata type discriminator.
func (r GitRoot) Type() string { return TypeGitRoot }

// MetadataAttributes renders the immutable metadata row attributes.
func (r GitRoot) MetadataAttributes() map[string]any {
	return map[string]any{
		"type":            TypeGitRoot,
		"group_name":      r.GroupName,
		"organization_id": r.OrganizationID,
		"url":             r.URL,
		"branch":          r.Branch,
		"nickname":        r.Nickname,
		"created_by":      r.CreatedBy,
		"created_date":    FormatTime(r.CreatedDate),
	}
}
