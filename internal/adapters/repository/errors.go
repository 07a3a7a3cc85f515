package repository

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers.
var (
	ErrMissingID     = errors.New("missing record id")
	ErrUnknownIncome = errors.New("unknown income record")
)
