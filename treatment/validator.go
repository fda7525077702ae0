// Package treatment gates mutations of the TREATMENT series against
// organization policy. A passing validation authorizes the subsequent
// append; it never writes anything itself.
package treatment

import (
	"fmt"
	"math"
	"time"

	"github.com/vulntrack/vtrack-backend/model"
)

// ChangeRequest is a proposed next treatment as it arrives from the
// caller: status plus raw user-supplied fields, the acceptance date
// still unparsed.
type ChangeRequest struct {
	Status         string `json:"status"`
	Justification  string `json:"justification"`
	Manager        string `json:"manager"`
	AcceptanceDate string `json:"acceptance_date,omitempty"`
}

// acceptanceDateLayouts are the accepted input formats for the
// acceptance date: the historic wire format or a bare calendar day.
var acceptanceDateLayouts = []string{model.TimeLayout, "2006-01-02"}

// Validate checks a proposed treatment change against organization
// policy, in order, failing fast on the first violated rule:
//
//  1. a temporary acceptance must carry a parseable acceptance date
//     that is neither in the past nor beyond the organization's
//     acceptance window;
//  2. the severity score must fall inside the organization's
//     acceptance range, inclusive, at one-decimal precision;
//  3. the acceptance must not push the count of acceptations past the
//     organization's cap, when one is set.
//
// On success it returns the typed record to append, stamped with the
// given actor and time.
func Validate(
	policy model.OrgPolicy,
	severity float64,
	history []model.TreatmentEntry,
	req ChangeRequest,
	actor string,
	now time.Time,
) (model.TreatmentEntry, error) {
	entry := model.TreatmentEntry{
		Entry:         model.Entry{ModifiedBy: actor, ModifiedDate: now.UTC().Truncate(time.Second)},
		Status:        req.Status,
		Justification: req.Justification,
		Manager:       req.Manager,
	}

	if req.Status == model.TreatmentAccepted {
		acceptance, err := validateAcceptanceDate(policy, req.AcceptanceDate, now)
		if err != nil {
			return model.TreatmentEntry{}, err
		}
		entry.AcceptanceDate = &acceptance

		if err := validateAcceptanceSeverity(policy, severity); err != nil {
			return model.TreatmentEntry{}, err
		}
	}

	if model.IsAcceptedTreatment(req.Status) {
		if err := validateNumberAcceptations(policy, history); err != nil {
			return model.TreatmentEntry{}, err
		}
	}

	return entry, nil
}

func validateAcceptanceDate(policy model.OrgPolicy, raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: acceptance date is required for temporary acceptance", model.ErrInvalidDateFormat)
	}

	var acceptance time.Time
	parsed := false
	for _, layout := range acceptanceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			acceptance = t
			parsed = true
			break
		}
	}
	if !parsed {
		return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidDateFormat, raw)
	}

	if acceptance.Before(now.UTC().Truncate(24 * time.Hour)) {
		return time.Time{}, fmt.Errorf("%w: acceptance date %s is in the past", model.ErrInvalidDateFormat, raw)
	}
	if policy.MaxAcceptanceDays != nil {
		limit := now.UTC().AddDate(0, 0, *policy.MaxAcceptanceDays)
		if acceptance.After(limit) {
			return time.Time{}, fmt.Errorf("%w: acceptance date %s exceeds the %d day acceptance window",
				model.ErrInvalidDateFormat, raw, *policy.MaxAcceptanceDays)
		}
	}
	return acceptance, nil
}

func validateAcceptanceSeverity(policy model.OrgPolicy, severity float64) error {
	score := roundDecimal(severity)
	if score < roundDecimal(policy.MinAcceptanceSeverity) || score > roundDecimal(policy.MaxAcceptanceSeverity) {
		return fmt.Errorf("%w: severity %.1f outside [%.1f, %.1f]", model.ErrInvalidAcceptanceSeverity,
			score, policy.MinAcceptanceSeverity, policy.MaxAcceptanceSeverity)
	}
	return nil
}

func validateNumberAcceptations(policy model.OrgPolicy, history []model.TreatmentEntry) error {
	if policy.MaxNumberAcceptations == nil {
		return nil
	}
	prior := 0
	for _, entry := range history {
		if model.IsAcceptedTreatment(entry.Status) {
			prior++
		}
	}
	if prior+1 > *policy.MaxNumberAcceptations {
		return fmt.Errorf("%w: %d acceptations already recorded, policy allows %d",
			model.ErrInvalidNumberAcceptations, prior, *policy.MaxNumberAcceptations)
	}
	return nil
}

// Severity bounds are configured and compared at one-decimal precision.
func roundDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
