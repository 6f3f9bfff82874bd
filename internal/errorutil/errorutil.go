package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures that are due to
// unrecoverable inconsistencies in the tracer's bookkeeping.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents lookups that did not match any recorded data.
var ErrNoResults = errors.New("no results returned")
