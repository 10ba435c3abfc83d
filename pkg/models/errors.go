package models

import "github.com/pkg/errors"

// Error taxonomy shared by every model component. Components wrap these with
// context; callers test with errors.Is.
var (
	// ErrDimensionMismatch is returned when an input vector or matrix does not
	// match a component's configured size. Raised before any arithmetic.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotFitted is returned by operations that need a prior Train/Fit call.
	ErrNotFitted = errors.New("model not fitted")

	// ErrUnknownIdentifier marks a lookup against a missing id. Compliance
	// checks handle it locally and report a negative result instead.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrEmptyInput is returned when a non-empty list is required.
	ErrEmptyInput = errors.New("empty input")

	// ErrInsufficientSamples is returned by clustering when there are fewer
	// rows than requested groups.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrOutOfRange is returned for matrix indices outside the configured shape.
	ErrOutOfRange = errors.New("index out of range")

	// ErrInvalidArgument covers arguments that make a formula undefined.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by the metadata store and the job queue.
	ErrNotFound = errors.New("not found")
)

// IsClientError reports whether err stems from caller input rather than from
// the service itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInsufficientSamples) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrUnknownIdentifier)
}
