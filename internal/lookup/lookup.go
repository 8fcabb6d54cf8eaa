// Package lookup resolves action and petition ids to their display titles
// via the upstream platform's list API, behind a process-memoized layer and a
// shared persistent TTL layer.
package lookup

import (
	"context"
	"time"

	"hookbridge/internal/faults"
)

// ResourceType is one of the two upstream entity kinds we query titles for.
type ResourceType string

const (
	TypeAction   ResourceType = "action"
	TypePetition ResourceType = "petition"
)

// ForSubmission maps a submission's actiontype to the resource type holding
// its title.
func ForSubmission(isPetition bool) ResourceType {
	if isPetition {
		return TypePetition
	}
	return TypeAction
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	return t == TypeAction || t == TypePetition
}

func (t ResourceType) validate() error {
	if !t.Valid() {
		return faults.New(faults.CategoryInvalidArgument,
			"resource type must be action or petition, got %q", string(t))
	}
	return nil
}

// Titles maps an external id to its title. A non-nil empty map is a valid
// upstream response (likely a privacy setting change) and is distinct from a
// failed fetch.
type Titles map[string]string

// Fetcher retrieves the full title set for one resource type from upstream.
type Fetcher interface {
	Fetch(ctx context.Context, typ ResourceType) (Titles, error)
}

// Store is the persistent cache layer shared across processes.
type Store interface {
	// Get returns the cached titles, or nil with no error on a miss.
	Get(ctx context.Context, typ ResourceType) (Titles, error)
	Set(ctx context.Context, typ ResourceType, titles Titles, ttl time.Duration) error
}
