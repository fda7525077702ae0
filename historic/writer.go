package historic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/model"
)

// Writer appends historic records and maintains the latest projections.
// All writes go through the ordered batch path of the store: historic
// row first, projection second, retried in full on partial failure.
type Writer struct {
	store database.ItemStore
}

// NewWriter returns a writer over the given store.
func NewWriter(store database.ItemStore) *Writer {
	return &Writer{store: store}
}

// Append writes one state transition to a series: the new historic
// record plus the refreshed latest projection. The record ordinal is
// the current series length, and the record timestamp must not precede
// the series head (timestamps are non-decreasing within a series).
func (w *Writer) Append(
	ctx context.Context,
	keys model.KeyStructure,
	itemID string,
	series string,
	date time.Time,
	attrs map[string]any,
) error {
	historicFacet, ok := keys.Historic[series]
	if !ok {
		return fmt.Errorf("entity type %s has no series %s", keys.EntityType, series)
	}
	latestFacet := keys.Latest[series]

	existing, err := w.store.Query(ctx, keys.PartitionKey(itemID), model.SeriesPrefix(series))
	if err != nil {
		return err
	}
	if n := len(existing); n > 0 {
		head := existing[n-1]
		if headDate := head.String("modified_date"); model.FormatTime(date) < headDate {
			return fmt.Errorf("item %s series %s: record at %s predates series head %s",
				itemID, series, model.FormatTime(date), headDate)
		}
	}

	rows, err := BuildHistoric(attrs, historicFacet, latestFacet, map[string]string{
		"id":         itemID,
		"iso8601utc": model.FormatTime(date),
		"ordinal":    Ordinal(len(existing)),
	})
	if err != nil {
		return err
	}

	return w.store.BatchPut(ctx, []database.Write{
		{Item: rows[0], Mode: database.PutCreateOnly},
		{Item: rows[1], Mode: database.PutOverwrite},
	})
}

// CreateEntity writes the first record of each mandatory series and
// then the metadata row. The metadata row goes last: it is what makes
// the entity visible, so an observer of an interrupted create sees no
// entity at all, never one with a missing series. A retried create
// re-applies the series batches idempotently (create-only conflicts
// count as applied) and then lands the metadata, healing the partial
// state. Creating an entity whose metadata already exists fails with
// ErrAlreadyExists before any row is touched; identical facet+values
// addressing the same row is also the external de-duplication
// mechanism.
func (w *Writer) CreateEntity(
	ctx context.Context,
	keys model.KeyStructure,
	itemID string,
	metadataValues map[string]string,
	metadataAttrs map[string]any,
	initial map[string]map[string]any,
	date time.Time,
) error {
	for _, series := range keys.RequiredSeries {
		if _, ok := initial[series]; !ok {
			return fmt.Errorf("entity %s: missing initial %s record", itemID, series)
		}
	}

	metaKey, err := keys.Metadata.BuildKey(metadataValues)
	if err != nil {
		return err
	}
	if _, err := w.store.Get(ctx, metaKey); err == nil {
		return fmt.Errorf("entity %s: %w", itemID, model.ErrAlreadyExists)
	} else if !errors.Is(err, model.ErrItemNotFound) {
		return err
	}

	for _, series := range keys.RequiredSeries {
		rows, err := BuildHistoric(initial[series], keys.Historic[series], keys.Latest[series], map[string]string{
			"id":         itemID,
			"iso8601utc": model.FormatTime(date),
			"ordinal":    Ordinal(0),
		})
		if err != nil {
			return err
		}
		err = w.store.BatchPut(ctx, []database.Write{
			{Item: rows[0], Mode: database.PutCreateOnly},
			{Item: rows[1], Mode: database.PutOverwrite},
		})
		if err != nil {
			return err
		}
	}

	meta := model.Item{PK: metaKey.PartitionKey, SK: metaKey.SortKey, Attributes: model.CopyAttributes(metadataAttrs)}
	return w.store.Put(ctx, meta, database.PutCreateOnly)
}

// CreateVulnerability creates a vulnerability entity from its typed
// form: metadata plus the initial STATE and TREATMENT records.
func (w *Writer) CreateVulnerability(ctx context.Context, v model.Vulnerability) error {
	return w.CreateEntity(ctx, model.VulnerabilityKeys, v.ID,
		map[string]string{"id": v.ID, "group_name": v.GroupName},
		v.MetadataAttributes(),
		map[string]map[string]any{
			model.SeriesState:     v.State.ToAttributes(),
			model.SeriesTreatment: v.Treatment.ToAttributes(),
		},
		v.CreatedDate,
	)
}

// CreateGitRoot creates a git root entity: metadata plus the initial
// STATE and CLON records.
func (w *Writer) CreateGitRoot(ctx context.Context, r model.GitRoot) error {
	return w.CreateEntity(ctx, model.GitRootKeys, r.ID,
		map[string]string{"id": r.ID, "group_name": r.GroupName},
		r.MetadataAttributes(),
		map[string]map[string]any{
			model.SeriesState:   r.State.ToAttributes(),
			model.SeriesCloning: r.Cloning.ToAttributes(),
		},
		r.CreatedDate,
	)
}

// CreateResource creates a resource entity: metadata plus the initial
// STATE record.
func (w *Writer) CreateResource(ctx context.Context, r model.Resource) error {
	return w.CreateEntity(ctx, model.ResourceKeys, r.ID,
		map[string]string{"id": r.ID, "root_id": r.RootID},
		r.MetadataAttributes(),
		map[string]map[string]any{
			model.SeriesState: r.State.ToAttributes(),
		},
		r.CreatedDate,
	)
}

// AppendState appends a STATE record. Entity deletion goes through here
// as a terminal DELETED record; historic rows are never removed.
func (w *Writer) AppendState(ctx context.Context, keys model.KeyStructure, itemID string, entry model.StateEntry) error {
	return w.Append(ctx, keys, itemID, model.SeriesState, entry.ModifiedDate, entry.ToAttributes())
}

// AppendTreatment appends a TREATMENT record. Policy gating happens in
// the treatment package before this is called; the log itself accepts
// any next value.
func (w *Writer) AppendTreatment(ctx context.Context, keys model.KeyStructure, itemID string, entry model.TreatmentEntry) error {
	return w.Append(ctx, keys, itemID, model.SeriesTreatment, entry.ModifiedDate, entry.ToAttributes())
}

// AppendVerification appends a VERIFICATION record.
func (w *Writer) AppendVerification(ctx context.Context, keys model.KeyStructure, itemID string, entry model.VerificationEntry) error {
	return w.Append(ctx, keys, itemID, model.SeriesVerification, entry.ModifiedDate, entry.ToAttributes())
}

// AppendZeroRisk appends a ZERORISK record.
func (w *Writer) AppendZeroRisk(ctx context.Context, keys model.KeyStructure, itemID string, entry model.ZeroRiskEntry) error {
	return w.Append(ctx, keys, itemID, model.SeriesZeroRisk, entry.ModifiedDate, entry.ToAttributes())
}

// AppendCloning appends a CLON record on a git root.
func (w *Writer) AppendCloning(ctx context.Context, itemID string, entry model.CloneEntry) error {
	return w.Append(ctx, model.GitRootKeys, itemID, model.SeriesCloning, entry.ModifiedDate, entry.ToAttributes())
}
