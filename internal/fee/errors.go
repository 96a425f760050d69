package fee

import "errors"

var (
	// ErrFeeEstimation is returned when the oracle is unreachable or its response lacks the expected levels.
	ErrFeeEstimation = errors.New("fee estimation failed")

	// ErrInvalidFee is returned when a fee computation would produce a non-finite or negative value.
	ErrInvalidFee = errors.New("invalid fee computation")
)
