package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntrack/vtrack-backend/model"
)

func TestDocumentKey(t *testing.T) {
	key := model.PrimaryKey{PartitionKey: "VULN#7b0f", SortKey: "LATEST#STATE"}

	first := DocumentKey(key)
	second := DocumentKey(key)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	// '#' is not a legal Arango document key character; the digest is
	assert.NotContains(t, first, "#")

	other := DocumentKey(model.PrimaryKey{PartitionKey: "VULN#7b0f", SortKey: "LATEST#TREATMENT"})
	assert.NotEqual(t, first, other)
}

func TestDocumentRoundTrip(t *testing.T) {
	item := model.Item{
		PK: "VULN#7b0f",
		SK: "STATE#2026-03-02T10:00:00Z#000000",
		Attributes: map[string]any{
			"status":        "OPEN",
			"modified_by":   "hacker@aurora.io",
			"modified_date": "2026-03-02T10:00:00Z",
		},
	}

	doc := toDocument(item)
	assert.Equal(t, DocumentKey(item.Key()), doc["_key"])
	assert.Equal(t, item.PK, doc["pk"])
	assert.Equal(t, item.SK, doc["sk"])

	// simulate driver bookkeeping fields coming back on read
	doc["_id"] = "vms/" + DocumentKey(item.Key())
	doc["_rev"] = "abc123"

	back := fromDocument(doc)
	require.Equal(t, item.PK, back.PK)
	require.Equal(t, item.SK, back.SK)
	assert.Equal(t, item.Attributes, back.Attributes)
}
