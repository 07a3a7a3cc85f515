package syncjob

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers.
var (
	ErrExhausted = errors.New("retry policy exhausted")
)
