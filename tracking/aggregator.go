// Package tracking reconstructs point-in-time snapshots from historic
// logs to produce the weekly trend series consumed by the charts,
// without a separate analytical store.
package tracking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/model"
)

const weekLabelLayout = "2006-01-02"

// weekCounts is one snapshot of the derived categories at a cutoff.
type weekCounts struct {
	found         int
	closed        int
	accepted      int
	opened        int
	assumedClosed int
}

func (w weekCounts) allZero() bool {
	return w.found == 0 && w.closed == 0 && w.accepted == 0 && w.opened == 0 && w.assumedClosed == 0
}

// BuildSeries walks the state and treatment logs of every entity in
// scope and reconstructs, for each ISO week between the earliest and
// the latest state record, how many entities fall in each category as
// of that week's cutoff. Weeks run Monday through Sunday; a week where
// every derived number is zero produces no data point.
//
// Totals are cumulative across weeks. An entity whose first record
// postdates a cutoff contributes nothing to that week; a DELETED
// record decrements found from its week onward so the total tracks the
// live entity count, while a closed or accepted standing reached
// before the deletion stays counted. opened and assumed_closed are
// derived as found-closed-accepted and accepted+closed respectively.
func BuildSeries(histories []model.VulnerabilityHistory) []model.TrackingSeries {
	first, last, ok := stateBounds(histories)
	if !ok {
		return nil
	}

	series := map[string]*model.TrackingSeries{
		model.CategoryFound:         {Category: model.CategoryFound},
		model.CategoryClosed:        {Category: model.CategoryClosed},
		model.CategoryAccepted:      {Category: model.CategoryAccepted},
		model.CategoryOpened:        {Category: model.CategoryOpened},
		model.CategoryAssumedClosed: {Category: model.CategoryAssumedClosed},
	}

	firstWeek := mondayOf(first)
	lastWeek := mondayOf(last)
	for monday := firstWeek; !monday.After(lastWeek); monday = monday.AddDate(0, 0, 7) {
		cutoff := monday.AddDate(0, 0, 7).Add(-time.Second) // Sunday 23:59:59

		var counts weekCounts
		for _, history := range histories {
			accumulate(&counts, history, cutoff)
		}
		counts.opened = counts.found - counts.closed - counts.accepted
		counts.assumedClosed = counts.accepted + counts.closed

		if counts.allZero() {
			continue
		}

		label := monday.Format(weekLabelLayout)
		appendPoint(series[model.CategoryFound], label, counts.found)
		appendPoint(series[model.CategoryClosed], label, counts.closed)
		appendPoint(series[model.CategoryAccepted], label, counts.accepted)
		appendPoint(series[model.CategoryOpened], label, counts.opened)
		appendPoint(series[model.CategoryAssumedClosed], label, counts.assumedClosed)
	}

	return []model.TrackingSeries{
		*series[model.CategoryFound],
		*series[model.CategoryClosed],
		*series[model.CategoryAccepted],
		*series[model.CategoryOpened],
		*series[model.CategoryAssumedClosed],
	}
}

// accumulate evaluates one entity as of the cutoff and adds its
// contribution to the week's counts.
func accumulate(counts *weekCounts, history model.VulnerabilityHistory, cutoff time.Time) {
	hasOpen := false
	var current, lastLive *model.StateEntry
	for i := range history.States {
		state := &history.States[i]
		if state.ModifiedDate.After(cutoff) {
			break // records are chronological; nothing further applies
		}
		if state.Status == model.StateOpen {
			hasOpen = true
		}
		if state.Status != model.StateDeleted {
			lastLive = state
		}
		current = state
	}
	if current == nil {
		return // first record is after the cutoff date
	}

	if hasOpen {
		counts.found++
		if current.Status == model.StateDeleted {
			// Deletion removes the entity from the live total only;
			// whatever category it had reached before stays counted.
			counts.found--
		}
	}
	if lastLive == nil {
		return
	}
	switch lastLive.Status {
	case model.StateClosed:
		counts.closed++
	case model.StateOpen:
		if treatment := latestTreatment(history.Treatments, cutoff); treatment != nil &&
			model.IsAcceptedTreatment(treatment.Status) {
			counts.accepted++
		}
	}
}

func latestTreatment(treatments []model.TreatmentEntry, cutoff time.Time) *model.TreatmentEntry {
	var latest *model.TreatmentEntry
	for i := range treatments {
		if treatments[i].ModifiedDate.After(cutoff) {
			break
		}
		latest = &treatments[i]
	}
	return latest
}

func stateBounds(histories []model.VulnerabilityHistory) (first, last time.Time, ok bool) {
	for _, history := range histories {
		for _, state := range history.States {
			if !ok {
				first, last, ok = state.ModifiedDate, state.ModifiedDate, true
				continue
			}
			if state.ModifiedDate.Before(first) {
				first = state.ModifiedDate
			}
			if state.ModifiedDate.After(last) {
				last = state.ModifiedDate
			}
		}
	}
	return first, last, ok
}

// mondayOf returns the Monday 00:00:00 UTC of the ISO week containing t.
func mondayOf(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func appendPoint(s *model.TrackingSeries, label string, count int) {
	s.Points = append(s.Points, model.TrackingPoint{X: label, Y: count})
}

// Tracker produces tracking series for whole groups, fetching the
// underlying logs through the repository under the caller's deadline.
// A store failure mid-run aborts the aggregation; a truncated series
// would be indistinguishable from true inactivity.
type Tracker struct {
	repo *historic.Repository
	log  *zap.SugaredLogger
}

// NewTracker returns a tracker over the given repository.
func NewTracker(repo *historic.Repository, log *zap.Logger) *Tracker {
	return &Tracker{repo: repo, log: log.Sugar()}
}

// TrackingForGroup builds the weekly trend series of a group.
func (t *Tracker) TrackingForGroup(ctx context.Context, groupName string) ([]model.TrackingSeries, error) {
	histories, err := t.repo.VulnerabilityHistories(ctx, groupName)
	if err != nil {
		return nil, err
	}
	t.log.Debugw("aggregating tracking series", "group", groupName, "entities", len(histories))
	return BuildSeries(histories), nil
}
