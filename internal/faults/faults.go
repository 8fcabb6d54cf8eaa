package faults

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy for webhook intake and
// processing. The runner and the receive endpoint branch on categories, never
// on concrete error types.
type Category string

const (
	// CategoryValidation indicates missing or malformed input. Rejected
	// before anything reaches the queue.
	CategoryValidation Category = "validation"

	// CategoryAuth indicates a shared-secret mismatch.
	CategoryAuth Category = "auth"

	// CategorySpam indicates the content firewall rejected the payload.
	CategorySpam Category = "spam"

	// CategoryConfig indicates a required setting is absent.
	CategoryConfig Category = "config"

	// CategoryInvalidArgument indicates a caller bug, such as an unknown
	// lookup resource type.
	CategoryInvalidArgument Category = "invalid_argument"

	// CategoryExternalLookup indicates the upstream title API was
	// unreachable, unparsable, or missing a required id. Fatal to the whole
	// batch: the remaining queued items will almost certainly hit it too.
	CategoryExternalLookup Category = "external_lookup"

	// CategoryProcessing indicates any other per-item failure during the
	// chain. The item is dead-lettered and the run continues.
	CategoryProcessing Category = "processing"
)

// Fault wraps a failure with its normalized category.
type Fault struct {
	Category Category
	Message  string
	Err      error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Category, f.Message, f.Err)
	}
	return fmt.Sprintf("[%s] %s", f.Category, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// New creates a categorized fault.
func New(category Category, format string, args ...any) *Fault {
	return &Fault{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap categorizes an underlying error.
func Wrap(category Category, err error, message string) *Fault {
	return &Fault{Category: category, Message: message, Err: err}
}

// CategoryOf extracts the category from an error, defaulting to
// CategoryProcessing for anything uncategorized.
func CategoryOf(err error) Category {
	var f *Fault
	if errors.As(err, &f) {
		return f.Category
	}
	return CategoryProcessing
}

// Is reports whether err carries the given category.
func Is(err error, category Category) bool {
	return err != nil && CategoryOf(err) == category
}

// IsFatalToBatch reports whether a processing failure should stop the whole
// run. Only upstream lookup failures qualify; everything else is per-item.
func IsFatalToBatch(err error) bool {
	return Is(err, CategoryExternalLookup)
}

// IsPreEnqueue reports whether the category belongs to the receive-side
// firewall. These must never be written to durable storage.
func IsPreEnqueue(err error) bool {
	switch CategoryOf(err) {
	case CategoryValidation, CategoryAuth, CategorySpam, CategoryConfig:
		return true
	}
	return false
}
