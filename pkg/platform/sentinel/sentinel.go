package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and queue implementations
// return these (optionally wrapped) so callers can branch without inspecting
// concrete types.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrQueueEmpty: no claimable work; a normal stop signal, not a failure
// - ErrUnavailable: service or resource temporarily unavailable
//
// For input validation and processing failures, use internal/faults.
var (
	ErrNotFound    = errors.New("not found")
	ErrQueueEmpty  = errors.New("queue empty")
	ErrUnavailable = errors.New("unavailable")
)
