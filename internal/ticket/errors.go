package ticket

import "fmt"

// ValidationError reports a missing or blank required ticket field. It is a
// caller error; the state machine is never entered.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ticket %s is required", e.Field)
}

// CollaboratorError reports that the text-generation collaborator failed,
// timed out or returned nothing usable during a pipeline step. It is a fault,
// not a rejection, and never consumes the retry budget.
type CollaboratorError struct {
	Step    State
	Attempt int
	Err     error
}

func (e *CollaboratorError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("%s (attempt %d): collaborator: %v", e.Step, e.Attempt, e.Err)
	}
	return fmt.Sprintf("%s: collaborator: %v", e.Step, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// EscalationWriteError reports that an escalation record could not be
// persisted after every allowed try.
type EscalationWriteError struct {
	Tries int
	Err   error
}

func (e *EscalationWriteError) Error() string {
	return fmt.Sprintf("escalation record not persisted after %d tries: %v", e.Tries, e.Err)
}

func (e *EscalationWriteError) Unwrap() error { return e.Err }

// SecondarySinkError reports that the primary escalation sink accepted a
// record but one or more secondary sinks did not. The hand-off is durable,
// so the run still counts as logged.
type SecondarySinkError struct {
	Err error
}

func (e *SecondarySinkError) Error() string {
	return fmt.Sprintf("secondary escalation sinks failed: %v", e.Err)
}

func (e *SecondarySinkError) Unwrap() error { return e.Err }
