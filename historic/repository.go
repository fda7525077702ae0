package historic

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/model"
)

// assemblyFanout caps concurrent per-entity partition fetches.
const assemblyFanout = 16

// Repository fetches and assembles entities from the store. Reads are
// weakly consistent: concurrent writers to the same entity resolve
// last-writer-wins on the projection row, which is acceptable under the
// single-logical-owner assumption.
type Repository struct {
	store database.ItemStore
	log   *zap.SugaredLogger
}

// NewRepository returns a repository over the given store.
func NewRepository(store database.ItemStore, log *zap.Logger) *Repository {
	return &Repository{store: store, log: log.Sugar()}
}

// metadataForParent finds the metadata rows of every entity under a
// parent via the inverted index: the metadata sort key carries the
// parent id, so anchoring on it enumerates members without knowing
// their kinds. A parent id can name a group or a root; both layouts
// are probed.
func (r *Repository) metadataForParent(ctx context.Context, parentID string) ([]model.Item, error) {
	var out []model.Item
	for _, sortKey := range []string{
		model.MetadataSortPrefix + "GROUP#" + parentID,
		model.MetadataSortPrefix + "ROOT#" + parentID,
	} {
		items, err := r.store.QueryInverted(ctx, sortKey, "")
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// GetEntity fetches the full partition of one entity under a parent
// and assembles it. Returns ErrEntityNotFound when the parent has no
// such member.
func (r *Repository) GetEntity(ctx context.Context, parentID, entityID string) (model.Entity, error) {
	metas, err := r.metadataForParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	for _, meta := range metas {
		if entityIDFromPartitionKey(meta.PK) != entityID {
			continue
		}
		keys, err := model.KeysForType(meta.String("type"))
		if err != nil {
			return nil, err
		}
		items, err := r.store.Query(ctx, meta.PK, "")
		if err != nil {
			return nil, err
		}
		return BuildEntity(entityID, keys, items)
	}
	return nil, fmt.Errorf("%w: %s under %s", model.ErrEntityNotFound, entityID, parentID)
}

// EntitiesForParent assembles every entity under a parent. Per-entity
// partitions are fetched concurrently and joined; any failure aborts
// the whole listing rather than returning a partial set.
func (r *Repository) EntitiesForParent(ctx context.Context, parentID string) ([]model.Entity, error) {
	metas, err := r.metadataForParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	entities := make([]model.Entity, len(metas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assemblyFanout)

	for i, meta := range metas {
		g.Go(func() error {
			keys, err := model.KeysForType(meta.String("type"))
			if err != nil {
				return err
			}
			items, err := r.store.Query(gctx, meta.PK, "")
			if err != nil {
				return err
			}
			entity, err := BuildEntity(entityIDFromPartitionKey(meta.PK), keys, items)
			if err != nil {
				return err
			}
			entities[i] = entity
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].EntityID() < entities[j].EntityID() })
	r.log.Debugw("assembled entities", "parent", parentID, "count", len(entities))
	return entities, nil
}

// VulnerabilityHistories returns the complete STATE and TREATMENT logs
// of every vulnerability in a group, chronologically ordered, for the
// time-windowed aggregator.
func (r *Repository) VulnerabilityHistories(ctx context.Context, groupName string) ([]model.VulnerabilityHistory, error) {
	metas, err := r.store.QueryInverted(ctx, model.MetadataSortPrefix+"GROUP#"+groupName, "VULN#")
	if err != nil {
		return nil, err
	}

	histories := make([]model.VulnerabilityHistory, len(metas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assemblyFanout)

	for i, meta := range metas {
		g.Go(func() error {
			id := entityIDFromPartitionKey(meta.PK)
			items, err := r.store.Query(gctx, meta.PK, "")
			if err != nil {
				return err
			}
			history := model.VulnerabilityHistory{ID: id}
			for _, item := range model.SeriesItems(items, meta.PK, model.SeriesState) {
				entry, err := model.StateEntryFromItem(item)
				if err != nil {
					return err
				}
				history.States = append(history.States, entry)
			}
			for _, item := range model.SeriesItems(items, meta.PK, model.SeriesTreatment) {
				entry, err := model.TreatmentEntryFromItem(item)
				if err != nil {
					return err
				}
				history.Treatments = append(history.Treatments, entry)
			}
			histories[i] = history
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(histories, func(i, j int) bool { return histories[i].ID < histories[j].ID })
	return histories, nil
}

// TreatmentHistory returns the full TREATMENT log of one vulnerability.
func (r *Repository) TreatmentHistory(ctx context.Context, vulnerabilityID string) ([]model.TreatmentEntry, error) {
	pk := model.VulnerabilityKeys.PartitionKey(vulnerabilityID)
	items, err := r.store.Query(ctx, pk, model.SeriesPrefix(model.SeriesTreatment))
	if err != nil {
		return nil, err
	}
	entries := make([]model.TreatmentEntry, 0, len(items))
	for _, item := range items {
		entry, err := model.TreatmentEntryFromItem(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
