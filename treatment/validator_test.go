package treatment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntrack/vtrack-backend/model"
)

func intPtr(n int) *int { return &n }

func restrictivePolicy() model.OrgPolicy {
	return model.OrgPolicy{
		OrganizationID:        "org-1",
		MaxAcceptanceDays:     intPtr(90),
		MinAcceptanceSeverity: 2.0,
		MaxAcceptanceSeverity: 7.5,
		MaxNumberAcceptations: intPtr(2),
	}
}

func acceptedEntry(at time.Time) model.TreatmentEntry {
	return model.TreatmentEntry{
		Entry:  model.Entry{ModifiedBy: "manager@aurora.io", ModifiedDate: at},
		Status: model.TreatmentAccepted,
	}
}

var validationNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestValidateAcceptedHappyPath(t *testing.T) {
	req := ChangeRequest{
		Status:         model.TreatmentAccepted,
		Justification:  "compensating control in place",
		Manager:        "manager@aurora.io",
		AcceptanceDate: "2026-04-01",
	}

	entry, err := Validate(restrictivePolicy(), 5.5, nil, req, "hacker@aurora.io", validationNow)
	require.NoError(t, err)
	assert.Equal(t, model.TreatmentAccepted, entry.Status)
	assert.Equal(t, "hacker@aurora.io", entry.ModifiedBy)
	require.NotNil(t, entry.AcceptanceDate)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), entry.AcceptanceDate.UTC())
}

func TestValidateAcceptanceDate(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"missing", ""},
		{"unparseable", "04/01/2026"},
		{"past", "2026-02-01"},
		{"beyond window", "2026-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: tt.date}
			_, err := Validate(restrictivePolicy(), 5.5, nil, req, "hacker@aurora.io", validationNow)
			assert.ErrorIs(t, err, model.ErrInvalidDateFormat)
		})
	}
}

func TestValidateAcceptanceDateFullTimestamp(t *testing.T) {
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-04-01T12:00:00Z"}
	entry, err := Validate(restrictivePolicy(), 5.5, nil, req, "hacker@aurora.io", validationNow)
	require.NoError(t, err)
	require.NotNil(t, entry.AcceptanceDate)
}

func TestValidateAcceptanceDateTodayAllowed(t *testing.T) {
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-03-02"}
	_, err := Validate(restrictivePolicy(), 5.5, nil, req, "hacker@aurora.io", validationNow)
	assert.NoError(t, err)
}

func TestValidateAcceptanceDateUnlimitedWindow(t *testing.T) {
	policy := restrictivePolicy()
	policy.MaxAcceptanceDays = nil

	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2031-01-01"}
	_, err := Validate(policy, 5.5, nil, req, "hacker@aurora.io", validationNow)
	assert.NoError(t, err)
}

func TestValidateAcceptanceSeverity(t *testing.T) {
	tests := []struct {
		name     string
		severity float64
		wantErr  bool
	}{
		{"below minimum", 1.9, true},
		{"at minimum", 2.0, false},
		{"inside range", 5.5, false},
		{"at maximum", 7.5, false},
		{"above maximum", 7.6, true},
		{"rounds into range", 7.54, false},
		{"rounds out of range", 7.56, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-04-01"}
			_, err := Validate(restrictivePolicy(), tt.severity, nil, req, "hacker@aurora.io", validationNow)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidAcceptanceSeverity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNumberAcceptations(t *testing.T) {
	history := []model.TreatmentEntry{
		{Entry: model.Entry{ModifiedDate: validationNow.AddDate(0, -2, 0)}, Status: model.TreatmentNew},
		acceptedEntry(validationNow.AddDate(0, -1, 0)),
	}
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-04-01"}

	// second acceptance is still within the cap of two
	_, err := Validate(restrictivePolicy(), 5.5, history, req, "hacker@aurora.io", validationNow)
	require.NoError(t, err)

	// third acceptance exceeds it
	history = append(history, acceptedEntry(validationNow.AddDate(0, 0, -7)))
	_, err = Validate(restrictivePolicy(), 5.5, history, req, "hacker@aurora.io", validationNow)
	assert.ErrorIs(t, err, model.ErrInvalidNumberAcceptations)
}

func TestValidateNumberAcceptationsCountsUndefined(t *testing.T) {
	history := []model.TreatmentEntry{
		acceptedEntry(validationNow.AddDate(0, -2, 0)),
		{Entry: model.Entry{ModifiedDate: validationNow.AddDate(0, -1, 0)}, Status: model.TreatmentAcceptedUndefined},
	}
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-04-01"}

	_, err := Validate(restrictivePolicy(), 5.5, history, req, "hacker@aurora.io", validationNow)
	assert.ErrorIs(t, err, model.ErrInvalidNumberAcceptations)
}

func TestValidateNumberAcceptationsUncapped(t *testing.T) {
	policy := restrictivePolicy()
	policy.MaxNumberAcceptations = nil

	history := []model.TreatmentEntry{
		acceptedEntry(validationNow.AddDate(0, -3, 0)),
		acceptedEntry(validationNow.AddDate(0, -2, 0)),
		acceptedEntry(validationNow.AddDate(0, -1, 0)),
	}
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "2026-04-01"}

	_, err := Validate(policy, 5.5, history, req, "hacker@aurora.io", validationNow)
	assert.NoError(t, err)
}

func TestValidateRuleOrder(t *testing.T) {
	// every rule violated at once; the date rule must win
	history := []model.TreatmentEntry{
		acceptedEntry(validationNow.AddDate(0, -2, 0)),
		acceptedEntry(validationNow.AddDate(0, -1, 0)),
	}
	req := ChangeRequest{Status: model.TreatmentAccepted, AcceptanceDate: "not-a-date"}

	_, err := Validate(restrictivePolicy(), 9.9, history, req, "hacker@aurora.io", validationNow)
	assert.ErrorIs(t, err, model.ErrInvalidDateFormat)

	// with a valid date, severity is checked before the count
	req.AcceptanceDate = "2026-04-01"
	_, err = Validate(restrictivePolicy(), 9.9, history, req, "hacker@aurora.io", validationNow)
	assert.ErrorIs(t, err, model.ErrInvalidAcceptanceSeverity)
}

func TestValidateNonAcceptedSkipsAcceptanceRules(t *testing.T) {
	// IN_PROGRESS needs no date and ignores severity bounds
	req := ChangeRequest{Status: model.TreatmentInProgress, Justification: "assigned"}
	entry, err := Validate(restrictivePolicy(), 9.9, nil, req, "hacker@aurora.io", validationNow)
	require.NoError(t, err)
	assert.Nil(t, entry.AcceptanceDate)
}

func TestValidateAcceptedUndefinedSkipsDateAndSeverity(t *testing.T) {
	// permanent acceptance carries no date and no severity bound, but
	// still counts against the acceptation cap
	history := []model.TreatmentEntry{
		acceptedEntry(validationNow.AddDate(0, -2, 0)),
		acceptedEntry(validationNow.AddDate(0, -1, 0)),
	}
	req := ChangeRequest{Status: model.TreatmentAcceptedUndefined, Justification: "will not fix"}

	_, err := Validate(restrictivePolicy(), 9.9, nil, req, "hacker@aurora.io", validationNow)
	require.NoError(t, err)

	_, err = Validate(restrictivePolicy(), 9.9, history, req, "hacker@aurora.io", validationNow)
	assert.ErrorIs(t, err, model.ErrInvalidNumberAcceptations)
}
