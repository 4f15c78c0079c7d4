package splitexec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRegion is returned by New when no region with the given
	// name has been registered in this binary.
	ErrUnknownRegion = errors.New("splitexec: unknown region")

	// ErrAlreadyEntered is returned by Run while another entry on the
	// same Separator is still in flight.
	ErrAlreadyEntered = errors.New("splitexec: separator already entered")

	// ErrTerminated is returned by Run on a Separator whose region has
	// already completed. Separators are single-use.
	ErrTerminated = errors.New("splitexec: separator already terminated")

	// ErrAbnormalTermination indicates the child died without sending
	// its report: it crashed, was killed, or closed the channel early.
	ErrAbnormalTermination = errors.New("splitexec: child terminated abnormally")
)

// ChildError is a failure transported from the child. Kind is the
// child-side error's type (or "panic"), Trace the diagnostic rendered at
// the capture site inside the child, and Status the exit code when the
// failing error exposed one via an ExitStatus method.
type ChildError struct {
	Kind    string
	Message string
	Trace   string
	Status  int
}

func (e *ChildError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ExitStatus returns the exit code recorded for the failure, zero when
// none applies.
func (e *ChildError) ExitStatus() int {
	return e.Status
}
