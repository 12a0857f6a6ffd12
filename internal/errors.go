package tipster

import "errors"

// Sentinel errors for the TipsterHub domain.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
	ErrUpstream   = errors.New("upstream error")
)
