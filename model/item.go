package model

// PrimaryKey is the composite key of one stored row.
type PrimaryKey struct {
	PartitionKey string `json:"pk"`
	SortKey      string `json:"sk"`
}

// Item is one raw row of the vms collection: a composite key plus the
// schemaless attributes of the record stored under it. The storage
// layer flattens Attributes into the document body on write and folds
// them back on read.
type Item struct {
	PK         string         `json:"pk"`
	SK         string         `json:"sk"`
	Attributes map[string]any `json:"attributes"`
}

// Key returns the item's composite key.
func (i Item) Key() PrimaryKey {
	return PrimaryKey{PartitionKey: i.PK, SortKey: i.SK}
}

// String attribute lookup with a zero-value fallback.
func (i Item) String(name string) string {
	if v, ok := i.Attributes[name].(string); ok {
		return v
	}
	return ""
}

// Float attribute lookup. JSON decoding yields float64 for all numbers,
// so integer-valued attributes land here too.
func (i Item) Float(name string) (float64, bool) {
	switch v := i.Attributes[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// CopyAttributes returns a shallow copy of the attribute map, so that
// callers can derive rows without aliasing the source.
func CopyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
