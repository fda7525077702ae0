// Package historic implements the append-only event log that records
// the lifecycle of domain entities: pure selection of metadata and
// latest-per-series records out of a fetched partition, construction of
// the row pair for one state transition, and the typed assembly of
// whole entities.
package historic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vulntrack/vtrack-backend/model"
)

// Metadata selects, from a batch of rows sharing a partition, the
// metadata row of the item. Fails with ErrMetadataNotFound when absent;
// callers must treat that as "entity does not exist", not as a
// transient error.
func Metadata(itemID string, keys model.KeyStructure, items []model.Item) (model.Item, error) {
	pk := keys.PartitionKey(itemID)
	for _, item := range items {
		if item.PK == pk && strings.HasPrefix(item.SK, model.MetadataSortPrefix) {
			return item, nil
		}
	}
	return model.Item{}, fmt.Errorf("item %s: %w", itemID, model.ErrMetadataNotFound)
}

// Latest selects, among the rows of the item whose sort key begins with
// the series prefix, the one with the greatest sort key. Sort keys
// embed ISO-8601 timestamps, so lexicographically greatest means most
// recent. O(n) over the already-fetched batch, no extra round trip.
func Latest(itemID string, keys model.KeyStructure, series string, items []model.Item) (model.Item, error) {
	pk := keys.PartitionKey(itemID)
	prefix := model.SeriesPrefix(series)

	var latest model.Item
	found := false
	for _, item := range items {
		if item.PK != pk || !strings.HasPrefix(item.SK, prefix) {
			continue
		}
		if !found || item.SK > latest.SK {
			latest = item
			found = true
		}
	}
	if !found {
		return model.Item{}, fmt.Errorf("item %s series %s: %w", itemID, series, model.ErrLatestNotFound)
	}
	return latest, nil
}

// BuildHistoric produces the two rows to write for one state
// transition: the new historic record and the refreshed latest
// projection carrying the same attributes. Pure; the caller is
// responsible for writing both, historic row first, so that an observer
// of an interrupted write still sees the entity in its previous final
// state.
func BuildHistoric(
	attrs map[string]any,
	historicFacet model.Facet,
	latestFacet model.Facet,
	keyValues map[string]string,
) ([2]model.Item, error) {
	historicKey, err := historicFacet.BuildKey(keyValues)
	if err != nil {
		return [2]model.Item{}, err
	}
	latestKey, err := latestFacet.BuildKey(keyValues)
	if err != nil {
		return [2]model.Item{}, err
	}

	return [2]model.Item{
		{PK: historicKey.PartitionKey, SK: historicKey.SortKey, Attributes: model.CopyAttributes(attrs)},
		{PK: latestKey.PartitionKey, SK: latestKey.SortKey, Attributes: model.CopyAttributes(attrs)},
	}, nil
}

// Ordinal formats a series ordinal for use in sort keys. Fixed width so
// that ordinals sort correctly alongside the timestamp segment.
func Ordinal(n int) string {
	return fmt.Sprintf("%06d", n)
}

// ParseOrdinal reads an ordinal back out of a historic sort key, which
// always ends in "#<ordinal>".
func ParseOrdinal(sortKey string) (int, error) {
	idx := strings.LastIndex(sortKey, "#")
	if idx < 0 {
		return 0, fmt.Errorf("sort key %q has no ordinal segment", sortKey)
	}
	return strconv.Atoi(sortKey[idx+1:])
}
