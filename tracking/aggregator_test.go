package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/model"
)

// week1 is a Monday; week labels in assertions are derived from it.
var week1 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func weekLabel(n int) string {
	return week1.AddDate(0, 0, 7*(n-1)).Format(weekLabelLayout)
}

func stateAt(t time.Time, status string) model.StateEntry {
	return model.StateEntry{
		Entry:  model.Entry{ModifiedBy: "hacker@aurora.io", ModifiedDate: t},
		Status: status,
	}
}

func treatmentAt(t time.Time, status string) model.TreatmentEntry {
	return model.TreatmentEntry{
		Entry:  model.Entry{ModifiedBy: "manager@aurora.io", ModifiedDate: t},
		Status: status,
	}
}

func seriesByCategory(t *testing.T, out []model.TrackingSeries, category string) model.TrackingSeries {
	t.Helper()
	for _, s := range out {
		if s.Category == category {
			return s
		}
	}
	t.Fatalf("category %s not in output", category)
	return model.TrackingSeries{}
}

func pointAt(t *testing.T, s model.TrackingSeries, label string) int {
	t.Helper()
	for _, p := range s.Points {
		if p.X == label {
			return p.Y
		}
	}
	t.Fatalf("series %s has no point for %s", s.Category, label)
	return 0
}

func TestBuildSeriesEmpty(t *testing.T) {
	assert.Nil(t, BuildSeries(nil))
	assert.Nil(t, BuildSeries([]model.VulnerabilityHistory{{ID: "a"}}))
}

func TestBuildSeriesOpenThenClosed(t *testing.T) {
	histories := []model.VulnerabilityHistory{{
		ID: "a",
		States: []model.StateEntry{
			stateAt(week1.Add(10*time.Hour), model.StateOpen),
			stateAt(week1.AddDate(0, 0, 15), model.StateClosed), // week 3
		},
	}}

	out := BuildSeries(histories)
	require.Len(t, out, 5)

	found := seriesByCategory(t, out, model.CategoryFound)
	closed := seriesByCategory(t, out, model.CategoryClosed)
	opened := seriesByCategory(t, out, model.CategoryOpened)
	assumed := seriesByCategory(t, out, model.CategoryAssumedClosed)

	// three labelled weeks from first to last state record
	require.Len(t, found.Points, 3)

	assert.Equal(t, 1, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 0, pointAt(t, closed, weekLabel(1)))
	assert.Equal(t, 1, pointAt(t, opened, weekLabel(1)))

	assert.Equal(t, 1, pointAt(t, found, weekLabel(2)))
	assert.Equal(t, 0, pointAt(t, closed, weekLabel(2)))

	assert.Equal(t, 1, pointAt(t, found, weekLabel(3)))
	assert.Equal(t, 1, pointAt(t, closed, weekLabel(3)))
	assert.Equal(t, 0, pointAt(t, opened, weekLabel(3)))
	assert.Equal(t, 1, pointAt(t, assumed, weekLabel(3)))
}

func TestBuildSeriesLateEntityJoinsMidWindow(t *testing.T) {
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)}},
		{ID: "b", States: []model.StateEntry{stateAt(week1.AddDate(0, 0, 8), model.StateOpen)}},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)

	assert.Equal(t, 1, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 2, pointAt(t, found, weekLabel(2)))
}

func TestBuildSeriesDeletedLeavesLiveTotal(t *testing.T) {
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)}},
		{ID: "b", States: []model.StateEntry{
			stateAt(week1.Add(2*time.Hour), model.StateOpen),
			stateAt(week1.AddDate(0, 0, 9), model.StateDeleted), // week 2
		}},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)

	assert.Equal(t, 2, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 1, pointAt(t, found, weekLabel(2)))
}

func TestBuildSeriesClosedThenDeletedStaysClosed(t *testing.T) {
	// closing an entity is permanent in the totals: deleting it later
	// only removes it from found, the closed count must not drop back
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)}},
		{ID: "b", States: []model.StateEntry{
			stateAt(week1.Add(2*time.Hour), model.StateOpen),
			stateAt(week1.AddDate(0, 0, 8), model.StateClosed),   // week 2
			stateAt(week1.AddDate(0, 0, 15), model.StateDeleted), // week 3
		}},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)
	closed := seriesByCategory(t, out, model.CategoryClosed)
	assumed := seriesByCategory(t, out, model.CategoryAssumedClosed)

	assert.Equal(t, 2, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 0, pointAt(t, closed, weekLabel(1)))

	assert.Equal(t, 2, pointAt(t, found, weekLabel(2)))
	assert.Equal(t, 1, pointAt(t, closed, weekLabel(2)))
	assert.Equal(t, 1, pointAt(t, assumed, weekLabel(2)))

	assert.Equal(t, 1, pointAt(t, found, weekLabel(3)))
	assert.Equal(t, 1, pointAt(t, closed, weekLabel(3)))
	assert.Equal(t, 1, pointAt(t, assumed, weekLabel(3)))
}

func TestBuildSeriesAcceptedThenDeletedStaysAccepted(t *testing.T) {
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)}},
		{
			ID: "b",
			States: []model.StateEntry{
				stateAt(week1.Add(2*time.Hour), model.StateOpen),
				stateAt(week1.AddDate(0, 0, 8), model.StateDeleted), // week 2
			},
			Treatments: []model.TreatmentEntry{
				treatmentAt(week1.Add(2*time.Hour), model.TreatmentAccepted),
			},
		},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)
	accepted := seriesByCategory(t, out, model.CategoryAccepted)

	assert.Equal(t, 2, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 1, pointAt(t, accepted, weekLabel(1)))

	assert.Equal(t, 1, pointAt(t, found, weekLabel(2)))
	assert.Equal(t, 1, pointAt(t, accepted, weekLabel(2)))
}

func TestBuildSeriesDeletionWithoutOpenRecord(t *testing.T) {
	// a history holding nothing but a deletion was never counted in
	// found, so its removal must not drag the total below the live
	// entities
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)}},
		{ID: "b", States: []model.StateEntry{stateAt(week1.Add(2*time.Hour), model.StateDeleted)}},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)

	assert.Equal(t, 1, pointAt(t, found, weekLabel(1)))
}

func TestBuildSeriesAcceptedTreatment(t *testing.T) {
	histories := []model.VulnerabilityHistory{{
		ID:     "a",
		States: []model.StateEntry{stateAt(week1.Add(time.Hour), model.StateOpen)},
		Treatments: []model.TreatmentEntry{
			treatmentAt(week1.Add(time.Hour), model.TreatmentNew),
			treatmentAt(week1.AddDate(0, 0, 8), model.TreatmentAccepted), // week 2
		},
	}}

	out := BuildSeries(histories)
	accepted := seriesByCategory(t, out, model.CategoryAccepted)
	opened := seriesByCategory(t, out, model.CategoryOpened)
	assumed := seriesByCategory(t, out, model.CategoryAssumedClosed)

	assert.Equal(t, 0, pointAt(t, accepted, weekLabel(1)))
	assert.Equal(t, 1, pointAt(t, opened, weekLabel(1)))

	assert.Equal(t, 1, pointAt(t, accepted, weekLabel(2)))
	assert.Equal(t, 0, pointAt(t, opened, weekLabel(2)))
	assert.Equal(t, 1, pointAt(t, assumed, weekLabel(2)))
}

func TestBuildSeriesSkipsAllZeroWeeks(t *testing.T) {
	// single entity: opened then deleted a month later; the in-between
	// weeks still count it as live, but once deleted every category is
	// zero and the week is not emitted
	histories := []model.VulnerabilityHistory{{
		ID: "a",
		States: []model.StateEntry{
			stateAt(week1.Add(time.Hour), model.StateOpen),
			stateAt(week1.AddDate(0, 0, 21), model.StateDeleted), // week 4
			stateAt(week1.AddDate(0, 0, 28), model.StateDeleted), // week 5, keeps the window open
		},
	}}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)

	require.Len(t, found.Points, 3)
	labels := []string{found.Points[0].X, found.Points[1].X, found.Points[2].X}
	assert.Equal(t, []string{weekLabel(1), weekLabel(2), weekLabel(3)}, labels)
}

func TestBuildSeriesWeekBoundaries(t *testing.T) {
	// a record late on Sunday belongs to the closing week, one second
	// into Monday to the next
	sundayNight := week1.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	histories := []model.VulnerabilityHistory{
		{ID: "a", States: []model.StateEntry{stateAt(sundayNight, model.StateOpen)}},
		{ID: "b", States: []model.StateEntry{stateAt(sundayNight.Add(time.Second), model.StateOpen)}},
	}

	out := BuildSeries(histories)
	found := seriesByCategory(t, out, model.CategoryFound)

	assert.Equal(t, 1, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 2, pointAt(t, found, weekLabel(2)))
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday maps to itself", week1, week1},
		{"wednesday", week1.AddDate(0, 0, 2), week1},
		{"sunday", week1.AddDate(0, 0, 6), week1},
		{"next monday", week1.AddDate(0, 0, 7), week1.AddDate(0, 0, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mondayOf(tt.in))
		})
	}
}

func TestTrackingForGroup(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	repo := historic.NewRepository(store, zap.NewNop())
	writer := historic.NewWriter(store)
	tracker := NewTracker(repo, zap.NewNop())

	v := model.Vulnerability{
		ID: "a", GroupName: "aurora", OrganizationID: "org-1",
		VulnType: "lines", Where: "api/handlers.py", Specific: "42", Source: "machine",
		SeverityScore: 5.5, CreatedBy: "hacker@aurora.io", CreatedDate: week1.Add(time.Hour),
		State:     stateAt(week1.Add(time.Hour), model.StateOpen),
		Treatment: treatmentAt(week1.Add(time.Hour), model.TreatmentNew),
	}
	require.NoError(t, writer.CreateVulnerability(ctx, v))
	require.NoError(t, writer.AppendState(ctx, model.VulnerabilityKeys, "a",
		stateAt(week1.AddDate(0, 0, 8), model.StateClosed)))

	out, err := tracker.TrackingForGroup(ctx, "aurora")
	require.NoError(t, err)
	require.Len(t, out, 5)

	found := seriesByCategory(t, out, model.CategoryFound)
	closed := seriesByCategory(t, out, model.CategoryClosed)
	assert.Equal(t, 1, pointAt(t, found, weekLabel(1)))
	assert.Equal(t, 1, pointAt(t, closed, weekLabel(2)))
}
