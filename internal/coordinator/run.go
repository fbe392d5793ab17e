package coordinator

import "context"

// Outcome is how an analysis run ended
type Outcome string

const (
	// OutcomeApplied means the run's songs were written to the session
	OutcomeApplied Outcome = "applied"
	// OutcomeFailed means the suggestion call failed while the run was current
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded means the run was superseded and changed nothing
	OutcomeDiscarded Outcome = "discarded"
)

// Run is a handle on one analysis started by StartAnalysis
type Run struct {
	token     uint64
	appending bool
	done      chan struct{}
	outcome   Outcome
	err       error
}

func newRun(token uint64, appending bool) *Run {
	return &Run{token: token, appending: appending, done: make(chan struct{})}
}

// Token is the request generation of this run
func (r *Run) Token() uint64 {
	return r.token
}

// Appending reports whether this run extends existing results
func (r *Run) Appending() bool {
	return r.appending
}

// Done is closed once the run's outcome is known
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends or ctx is done. The error is the
// suggestion failure for OutcomeFailed, or ctx.Err().
func (r *Run) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Run) finish(outcome Outcome, err error) {
	r.outcome = outcome
	r.err = err
	close(r.done)
}

func (r *Run) mode() string {
	if r.appending {
		return "append"
	}
	return "fresh"
}
