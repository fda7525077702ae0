package model

import "time"

// Resource is a typed entity attached to a root (an environment URL or
// similar auxiliary asset) with a single STATE series.
type Resource struct {
	ID          string    `json:"id"`
	RootID      string    `json:"root_id"`
	Kind        string    `json:"kind"`
	Value       string    `json:"value"`
	CreatedBy   string    `json:"created_by"`
	CreatedDate time.Time `json:"created_date"`

	State StateEntry `json:"state"`
}

// EntityID returns the resource uuid.
func (r Resource) EntityID() string { return r.ID }

// Type returns the metadata type discriminator.
func (r Resource) Type() string { return TypeResource }

// MetadataAttributes renders the immutable metadata row attributes.
func (r Resource) MetadataAttributes() map[string]any {
	return map[string]any{
		"type":         TypeResource,
		"root_id":      r.RootID,
		"kind":         r.Kind,
		"value":        r.Value,
		"created_by":   r.CreatedBy,
		"created_date": FormatTime(r.CreatedDate),
	}
}
