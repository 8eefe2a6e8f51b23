package lte

import "errors"

// Error classes returned by every stage of the uplink pipeline. Stages wrap them with
// context; match with errors.Is.
var (
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrProcessNotInitialized = errors.New("harq process not initialized")
	ErrAllocationTooSmall    = errors.New("allocation too small")
	ErrAllocationMismatch    = errors.New("allocation mismatch")
	ErrControlOverflow       = errors.New("control information overflow")
	ErrInvalidBitLength      = errors.New("invalid bit length")
)

// ErrorClass returns a short label for the sentinel wrapped in err, "other" if none.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrProcessNotInitialized):
		return "process_not_initialized"
	case errors.Is(err, ErrAllocationTooSmall):
		return "allocation_too_small"
	case errors.Is(err, ErrAllocationMismatch):
		return "allocation_mismatch"
	case errors.Is(err, ErrControlOverflow):
		return "control_overflow"
	case errors.Is(err, ErrInvalidBitLength):
		return "invalid_bit_length"
	default:
		return "other"
	}
}
