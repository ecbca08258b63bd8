package fuzzy

import "errors"

// Sentinel errors. Every error returned by this package wraps one of these,
// so callers can branch with errors.Is while the message still names the
// offending variable, set or rule.
var (
	// Construction-time validation
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidName      = errors.New("invalid name")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrUnknownFamily    = errors.New("unknown operator family")
	ErrFrozen           = errors.New("structure is frozen after first evaluation")

	// Evaluation-time input errors
	ErrNotFound          = errors.New("not found")
	ErrInvalidValue      = errors.New("invalid value")
	ErrMissingInput      = errors.New("missing input value")
	ErrUnsupportedMode   = errors.New("unsupported inference mode")
	ErrUnsupportedMethod = errors.New("unsupported defuzzification method")
	ErrNotQualitative    = errors.New("variable is not qualitative")

	// Numerical degeneracy
	ErrZeroDenominator = errors.New("zero denominator")
	ErrEmptyBand       = errors.New("empty maxima band")
)
