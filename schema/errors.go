package schema

import "fmt"

// CircuitOpenError is returned by CircuitBreaker.Execute whenever the local
// state is Blocking. It is the only error the library itself raises through
// Execute; every other failure surfaces through onError or is the caller's
// own error propagated unchanged.
type CircuitOpenError struct {
	CircuitID string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for id %q", e.CircuitID)
}

// LifecycleError reports a violation of the start/stop state machine: a
// config mismatch while starting or already running, or any operation
// attempted on an Unrecoverable instance.
type LifecycleError struct {
	Phase LifecyclePhase
	Msg   string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle %s: %s", e.Phase, e.Msg)
}

// NewBusyError reports Start called with a different config while already Starting.
func NewBusyError() error {
	return &LifecycleError{Phase: Starting, Msg: "already starting with a different config"}
}

// NewRunningError reports Start called with a different config while already Operational.
func NewRunningError() error {
	return &LifecycleError{Phase: Operational, Msg: "already running with a different config"}
}

// NewUnrecoverableError reports any operation attempted on an Unrecoverable instance.
func NewUnrecoverableError(cause error) error {
	return &LifecycleError{Phase: Unrecoverable, Msg: fmt.Sprintf("instance is unrecoverable: %v", cause)}
}
