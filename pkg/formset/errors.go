package formset

import "errors"

var (
	// ErrUnknownRow signals that a logical row identifier is not registered.
	// It usually means the caller and the registry went out of sync.
	ErrUnknownRow = errors.New("formset: unknown row identifier")
	// ErrCapacityExceeded reports that MAX_NUM_FORMS rows are already attached.
	ErrCapacityExceeded = errors.New("formset: capacity exceeded")
	// ErrInvalidConfig is returned for a bad prefix, container or bounds.
	ErrInvalidConfig = errors.New("formset: invalid configuration")
	// ErrMissingTemplate is returned when no usable row template is found.
	ErrMissingTemplate = errors.New("formset: missing row template")
	// ErrMalformedRow is returned when existing rows do not follow the
	// naming convention or disagree with the management form.
	ErrMalformedRow = errors.New("formset: malformed row")
	// ErrMissingManagementForm is returned when TOTAL_FORMS cannot be found.
	ErrMissingManagementForm = errors.New("formset: missing management form")
	// ErrMissingDeleteMarker is returned when an original row has no DELETE
	// field to soft-delete it with.
	ErrMissingDeleteMarker = errors.New("formset: missing delete marker")
)
