// Package model - Domain types for the historic-record event log
package model

import "errors"

// Sentinel errors for the historic log and its callers. NotFound and
// validation conditions are expected business outcomes; callers match
// them with errors.Is and surface specific messages.
var (
	// ErrMissingKeyValue means a facet key was built without a required
	// value. Programmer error, fail loudly.
	ErrMissingKeyValue = errors.New("missing required key value")

	// ErrMetadataNotFound means no metadata row exists for the item in
	// the fetched partition. The entity does not exist.
	ErrMetadataNotFound = errors.New("metadata record not found")

	// ErrLatestNotFound means a series has no record in the fetched
	// partition.
	ErrLatestNotFound = errors.New("latest record not found")

	// ErrEntityNotFound means the entity could not be assembled because
	// its metadata is absent.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrItemNotFound means a point read matched no row.
	ErrItemNotFound = errors.New("item not found")

	// ErrAlreadyExists means a conditional create hit an existing row.
	ErrAlreadyExists = errors.New("item already exists")

	// ErrStoreUnavailable wraps transient storage failures. Retryable at
	// the caller's discretion; this layer does not retry reads.
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// Treatment validation errors, one per policy rule so the API layer can
// surface the exact rejection reason.
var (
	ErrInvalidDateFormat         = errors.New("invalid acceptance date")
	ErrInvalidAcceptanceSeverity = errors.New("severity outside acceptance range")
	ErrInvalidNumberAcceptations = errors.New("maximum number of acceptations reached")
)

// ErrInvalidInput means a caller-supplied field failed validation
// before reaching the store.
var ErrInvalidInput = errors.New("invalid input")
