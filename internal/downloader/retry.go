package downloader

import "time"

// State is the phase of a download's retry loop.
type State int

const (
	// StateAttempting means an attempt should be made now.
	StateAttempting State = iota
	// StateRetrying means the last attempt failed and another should follow
	// after a delay.
	StateRetrying
	// StateSucceeded means an attempt completed.
	StateSucceeded
	// StateFailed means no further attempts will be made.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome classifies the result of a single attempt.
type Outcome int

const (
	// OutcomeSuccess: the attempt completed and wrote the full stream.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable: transport failure or non-success status.
	OutcomeRetryable
	// OutcomeFatal: local I/O or mid-stream read failure.
	OutcomeFatal
)

// Policy is the retry policy: a fixed attempt budget with linear backoff.
type Policy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// Backoff is the base delay; the wait before retrying attempt n is
	// Backoff * n.
	Backoff time.Duration
}

// DefaultPolicy returns the standard policy: 3 attempts, 300ms linear
// backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     300 * time.Millisecond,
	}
}

// Step is the transition produced by Policy.Next.
type Step struct {
	State State
	// Delay to sleep before the next attempt; only set when State is
	// StateRetrying.
	Delay time.Duration
}

// Next is the pure transition function of the retry loop. attempt is the
// 1-based index of the attempt that just finished with the given outcome.
func (p Policy) Next(attempt int, outcome Outcome) Step {
	switch outcome {
	case OutcomeSuccess:
		return Step{State: StateSucceeded}
	case OutcomeFatal:
		return Step{State: StateFailed}
	}

	if attempt >= p.MaxAttempts {
		return Step{State: StateFailed}
	}
	return Step{
		State: StateRetrying,
		Delay: p.Backoff * time.Duration(attempt),
	}
}
