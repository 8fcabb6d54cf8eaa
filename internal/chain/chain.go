// Package chain implements the ordered processing pipeline that turns a
// sanitized submission into stored contact records. The sequence is fixed and
// short; extensions replace or append named steps at startup rather than
// hooking a runtime event bus.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hookbridge/internal/faults"
	"hookbridge/internal/lookup"
	"hookbridge/internal/submission"
)

// PassContext is the shared mutable state one submission accumulates while
// moving through the chain.
type PassContext struct {
	Submission submission.Submission
	ContactID  int64
	ActivityID int64
}

// Step is one named unit of the chain. Steps mutate the pass context in
// place; returning an error aborts the remaining steps.
type Step struct {
	Name string
	Run  func(ctx context.Context, pc *PassContext) error
}

// Customizer rewrites the default step sequence. It may drop, replace,
// reorder or append steps.
type Customizer func(steps []Step) []Step

// ErrRegistryFrozen is returned when Register is called after the chain has
// been assembled.
var ErrRegistryFrozen = errors.New("chain already assembled; register before first use or Reset")

// Registry assembles the step sequence exactly once per process. External
// packages register customizers before first use; after assembly the chain is
// immutable until an explicit Reset.
type Registry struct {
	mu          sync.Mutex
	defaults    func() []Step
	customizers []Customizer
	built       []Step
}

// NewRegistry creates a registry over a default-steps constructor.
func NewRegistry(defaults func() []Step) *Registry {
	return &Registry{defaults: defaults}
}

// Register adds a customizer. Fails once the chain has been assembled.
func (r *Registry) Register(c Customizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built != nil {
		return ErrRegistryFrozen
	}
	r.customizers = append(r.customizers, c)
	return nil
}

// Steps returns the assembled chain, building it on first use.
func (r *Registry) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built == nil {
		steps := r.defaults()
		for _, c := range r.customizers {
			steps = c(steps)
		}
		r.built = steps
	}
	return r.built
}

// Reset discards the assembled chain and registered customizers so the next
// use reassembles from defaults. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = nil
	r.customizers = nil
}

// Processor runs the assembled chain over queued submissions.
type Processor struct {
	registry *Registry
	cache    *lookup.Cache
	log      *slog.Logger
}

func NewProcessor(registry *Registry, cache *lookup.Cache, log *slog.Logger) *Processor {
	return &Processor{registry: registry, cache: cache, log: log}
}

// Process runs one submission through the chain, mutating it in place.
//
// Before the first step, when the submission references an action the title
// lookup must succeed and contain that id; failing that is fatal to the whole
// batch, since it means the upstream API itself is down rather than this one
// submission being bad. Step failures other than lookup failures come back as
// recoverable processing faults.
func (p *Processor) Process(ctx context.Context, sub submission.Submission) error {
	p.log.DebugContext(ctx, "processing queued webhook", "payload", sub.JSON())
	start := time.Now()

	if sub.Has(submission.FieldActionID) {
		typ := lookup.ForSubmission(sub.IsPetition())
		titles, err := p.cache.Get(ctx, typ, false)
		if err != nil {
			return faults.Wrap(faults.CategoryExternalLookup, err,
				fmt.Sprintf("failed to get API response for %s", typ))
		}
		if _, ok := titles[sub.Get(submission.FieldActionID)]; !ok {
			return faults.New(faults.CategoryExternalLookup,
				"%s with actionid %s not found in upstream API response",
				typ, sub.Get(submission.FieldActionID))
		}
	}

	pc := &PassContext{Submission: sub}
	for _, step := range p.registry.Steps() {
		if err := step.Run(ctx, pc); err != nil {
			if faults.IsFatalToBatch(err) {
				return err
			}
			p.log.ErrorContext(ctx, "failed processing webhook",
				"step", step.Name, "error", err.Error())
			return faults.Wrap(faults.CategoryProcessing, err, "step "+step.Name)
		}
	}

	p.log.InfoContext(ctx, "successfully created/updated contact",
		"contact_id", pc.ContactID,
		"took", time.Since(start).String())
	return nil
}
