package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/roach88/snexsync/internal/legacy"
)

// Outcome is what applying one entry did.
type Outcome string

const (
	// OutcomeApplied means the destination changed.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the destination already matched.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeMissing means the legacy row was gone before it could be read.
	OutcomeMissing Outcome = "missing"
	// OutcomeExcluded means the row belongs to a standard star.
	OutcomeExcluded Outcome = "excluded"
	// OutcomeGap means the owning target is not mirrored.
	OutcomeGap Outcome = "gap"
	// OutcomeDeferred means the entry failed and stays pending.
	OutcomeDeferred Outcome = "deferred"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{OutcomeApplied, OutcomeSkipped, OutcomeMissing, OutcomeExcluded, OutcomeGap, OutcomeDeferred}

// PassCount tallies outcomes for one (entity, action) pass.
type PassCount struct {
	Entity   Entity          `json:"entity"`
	Action   legacy.Action   `json:"action"`
	Outcomes map[Outcome]int `json:"outcomes"`
}

// Deferred describes an entry left pending by a non-fatal failure.
type Deferred struct {
	EntryID int64         `json:"entry_id"`
	Table   string        `json:"table"`
	Action  legacy.Action `json:"action"`
	RowID   int64         `json:"row_id"`
	Entity  Entity        `json:"entity"`
	Class   ErrorClass    `json:"class"`
	Error   string        `json:"error"`

	err error
}

// Report summarizes one run.
type Report struct {
	RunID    string      `json:"run_id"`
	Started  time.Time   `json:"started"`
	Finished time.Time   `json:"finished"`
	Passes   []PassCount `json:"passes"`
	Deferred []Deferred  `json:"deferred"`
	// Aborted is set when a connectivity failure stopped the run early.
	Aborted string `json:"aborted,omitempty"`
}

func newReport(runID string, started time.Time) *Report {
	return &Report{RunID: runID, Started: started, Deferred: []Deferred{}}
}

func (r *Report) count(entity Entity, action legacy.Action, outcome Outcome) {
	for i := range r.Passes {
		if r.Passes[i].Entity == entity && r.Passes[i].Action == action {
			r.Passes[i].Outcomes[outcome]++
			return
		}
	}
	r.Passes = append(r.Passes, PassCount{
		Entity:   entity,
		Action:   action,
		Outcomes: map[Outcome]int{outcome: 1},
	})
}

func (r *Report) deferEntry(ee *EntryError) {
	r.Deferred = append(r.Deferred, Deferred{
		EntryID: ee.Entry.ID,
		Table:   ee.Entry.Table,
		Action:  ee.Entry.Action,
		RowID:   ee.Entry.RowID,
		Entity:  ee.Entity,
		Class:   ee.Class,
		Error:   ee.Err.Error(),
		err:     ee,
	})
}

// Count returns the number of entries of one pass with the given outcome.
func (r *Report) Count(entity Entity, action legacy.Action, outcome Outcome) int {
	for _, p := range r.Passes {
		if p.Entity == entity && p.Action == action {
			return p.Outcomes[outcome]
		}
	}
	return 0
}

// Total returns the number of entries with the given outcome across passes.
func (r *Report) Total(outcome Outcome) int {
	n := 0
	for _, p := range r.Passes {
		n += p.Outcomes[outcome]
	}
	return n
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// DeferredErr combines the failures of every deferred entry, or returns nil.
// Use multierr.Errors to list them.
func (r *Report) DeferredErr() error {
	var errs error
	for _, d := range r.Deferred {
		err := d.err
		if err == nil {
			err = errors.New(d.Error)
		}
		errs = multierr.Append(errs, fmt.Errorf("entry %d: %w", d.EntryID, err))
	}
	return errs
}
