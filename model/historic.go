package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeLayout is the wire format of every historic timestamp: ISO-8601
// UTC with second precision. The format sorts lexicographically in
// chronological order, which the sort-key layout relies on.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders a timestamp in the historic wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a historic wire timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// State values of the STATE series.
const (
	StateOpen    = "OPEN"
	StateClosed  = "CLOSED"
	StateDeleted = "DELETED"
)

// Treatment values of the TREATMENT series.
const (
	TreatmentNew               = "NEW"
	TreatmentInProgress        = "IN_PROGRESS"
	TreatmentAccepted          = "ACCEPTED"
	TreatmentAcceptedUndefined = "ACCEPTED_UNDEFINED"
)

// Verification values of the VERIFICATION series.
const (
	VerificationRequested = "REQUESTED"
	VerificationVerified  = "VERIFIED"
)

// Zero-risk values of the ZERORISK series.
const (
	ZeroRiskRequested = "REQUESTED"
	ZeroRiskConfirmed = "CONFIRMED"
	ZeroRiskRejected  = "REJECTED"
)

// Cloning values of the CLON series (git roots only).
const (
	CloningQueued  = "QUEUED"
	CloningCloning = "CLONING"
	CloningOK      = "OK"
	CloningFailed  = "FAILED"
)

// IsAcceptedTreatment reports whether a treatment value is an
// acceptance of any kind.
func IsAcceptedTreatment(status string) bool {
	return status == TreatmentAccepted || status == TreatmentAcceptedUndefined
}

// Historic is the capability shared by every historic record: it was
// written by an actor at a point in time.
type Historic interface {
	Actor() string
	Date() time.Time
}

// Entry carries the fields common to all historic records.
type Entry struct {
	ModifiedBy   string    `json:"modified_by"`
	ModifiedDate time.Time `json:"modified_date"`
}

// Actor returns the actor that wrote the record.
func (e Entry) Actor() string { return e.ModifiedBy }

// Date returns the record timestamp.
func (e Entry) Date() time.Time { return e.ModifiedDate }

// StateEntry is one record of the STATE series.
type StateEntry struct {
	Entry
	Status string `json:"status"`
}

// TreatmentEntry is one record of the TREATMENT series.
type TreatmentEntry struct {
	Entry
	Status         string     `json:"status"`
	Justification  string     `json:"justification,omitempty"`
	Manager        string     `json:"manager,omitempty"`
	AcceptanceDate *time.Time `json:"acceptance_date,omitempty"`
}

// VerificationEntry is one record of the VERIFICATION series. It
// carries the ids of the records the request applies to.
type VerificationEntry struct {
	Entry
	Status           string   `json:"status"`
	VulnerabilityIDs []string `json:"vulnerability_ids,omitempty"`
}

// ZeroRiskEntry is one record of the ZERORISK series.
type ZeroRiskEntry struct {
	Entry
	Status        string `json:"status"`
	Justification string `json:"justification,omitempty"`
}

// CloneEntry is one record of the CLON series.
type CloneEntry struct {
	Entry
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func entryAttributes(e Entry, status string) map[string]any {
	return map[string]any{
		"modified_by":   e.ModifiedBy,
		"modified_date": FormatTime(e.ModifiedDate),
		"status":        status,
	}
}

func entryFromItem(item Item) (Entry, error) {
	date, err := ParseTime(item.String("modified_date"))
	if err != nil {
		return Entry{}, fmt.Errorf("row %s/%s: bad modified_date: %w", item.PK, item.SK, err)
	}
	return Entry{ModifiedBy: item.String("modified_by"), ModifiedDate: date}, nil
}

// ToAttributes renders the record as row attributes.
func (s StateEntry) ToAttributes() map[string]any {
	return entryAttributes(s.Entry, s.Status)
}

// StateEntryFromItem decodes a STATE row.
func StateEntryFromItem(item Item) (StateEntry, error) {
	e, err := entryFromItem(item)
	if err != nil {
		return StateEntry{}, err
	}
	return StateEntry{Entry: e, Status: item.String("status")}, nil
}

// ToAttributes renders the record as row attributes.
func (t TreatmentEntry) ToAttributes() map[string]any {
	attrs := entryAttributes(t.Entry, t.Status)
	if t.Justification != "" {
		attrs["justification"] = t.Justification
	}
	if t.Manager != "" {
		attrs["manager"] = t.Manager
	}
	if t.AcceptanceDate != nil {
		attrs["acceptance_date"] = FormatTime(*t.AcceptanceDate)
	}
	return attrs
}

// TreatmentEntryFromItem decodes a TREATMENT row.
func TreatmentEntryFromItem(item Item) (TreatmentEntry, error) {
	e, err := entryFromItem(item)
	if err != nil {
		return TreatmentEntry{}, err
	}
	entry := TreatmentEntry{
		Entry:         e,
		Status:        item.String("status"),
		Justification: item.String("justification"),
		Manager:       item.String("manager"),
	}
	if raw := item.String("acceptance_date"); raw != "" {
		date, err := ParseTime(raw)
		if err != nil {
			return TreatmentEntry{}, fmt.Errorf("row %s/%s: bad acceptance_date: %w", item.PK, item.SK, err)
		}
		entry.AcceptanceDate = &date
	}
	return entry, nil
}

// ToAttributes renders the record as row attributes.
func (v VerificationEntry) ToAttributes() map[string]any {
	attrs := entryAttributes(v.Entry, v.Status)
	if len(v.VulnerabilityIDs) > 0 {
		ids := make([]any, len(v.VulnerabilityIDs))
		for i, id := range v.VulnerabilityIDs {
			ids[i] = id
		}
		attrs["vulnerability_ids"] = ids
	}
	return attrs
}

// VerificationEntryFromItem decodes a VERIFICATION row.
func VerificationEntryFromItem(item Item) (VerificationEntry, error) {
	e, err := entryFromItem(item)
	if err != nil {
		return VerificationEntry{}, err
	}
	entry := VerificationEntry{Entry: e, Status: item.String("status")}
	if raw, ok := item.Attributes["vulnerability_ids"].([]any); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				entry.VulnerabilityIDs = append(entry.VulnerabilityIDs, id)
			}
		}
	}
	return entry, nil
}

// ToAttributes renders the record as row attributes.
func (z ZeroRiskEntry) ToAttributes() map[string]any {
	attrs := entryAttributes(z.Entry, z.Status)
	if z.Justification != "" {
		attrs["justification"] = z.Justification
	}
	return attrs
}

// ZeroRiskEntryFromItem decodes a ZERORISK row.
func ZeroRiskEntryFromItem(item Item) (ZeroRiskEntry, error) {
	e, err := entryFromItem(item)
	if err != nil {
		return ZeroRiskEntry{}, err
	}
	return ZeroRiskEntry{Entry: e, Status: item.String("status"), Justification: item.String("justification")}, nil
}

// ToAttributes renders the record as row attributes.
func (c CloneEntry) ToAttributes() map[string]any {
	attrs := entryAttributes(c.Entry, c.Status)
	if c.Message != "" {
		attrs["message"] = c.Message
	}
	return attrs
}

// CloneEntryFromItem decodes a CLON row.
func CloneEntryFromItem(item Item) (CloneEntry, error) {
	e, err := entryFromItem(item)
	if err != nil {
		return CloneEntry{}, err
	}
	return CloneEntry{Entry: e, Status: item.String("status"), Message: item.String("message")}, nil
}

// SeriesItems filters a fetched partition down to the historic rows of
// one series, sorted by sort key (== chronological order).
func SeriesItems(items []Item, partitionKey, series string) []Item {
	prefix := SeriesPrefix(series)
	var out []Item
	for _, item := range items {
		if item.PK == partitionKey && strings.HasPrefix(item.SK, prefix) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out
}
