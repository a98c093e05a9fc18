package saga

import "context"

// Result is the tagged outcome of a single saga step. Failure handling is
// data, not control flow: a failed Result carries the reason code and error
// kind the orchestrator surfaces after running compensations.
type Result struct {
	Reason string
	Kind   ErrorKind
	Err    error
}

// Ok returns a successful step result
func Ok() Result {
	return Result{}
}

// Fail returns a failed step result
func Fail(reason string, kind ErrorKind, err error) Result {
	return Result{Reason: reason, Kind: kind, Err: err}
}

// Failed reports whether the step failed
func (r Result) Failed() bool {
	return r.Reason != ""
}

// compensation is the inverse of a committed step. Compensations run in
// reverse commit order when a later step fails; their own errors are logged
// by the compensation function and never escalated.
type compensation struct {
	name string
	undo func(ctx context.Context, failed Result)
}

// compensations is the linear table of committed-step inverses
type compensations []compensation

func (c compensations) run(ctx context.Context, failed Result) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].undo(ctx, failed)
	}
}
