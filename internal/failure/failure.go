package failure

import (
	"errors"
	"fmt"
)

// Sentinel outcomes. ErrNotFound is a normal result (the query succeeded and
// the target does not exist), not a fault.
var (
	ErrNotFound  = errors.New("not found")
	ErrNoObjects = errors.New("no objects retrievable")
)

// ConfigError is fatal at startup and never recovered at runtime.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// ConnectivityError means an endpoint was unreachable or the handshake timed
// out. Recovery happens through registry rotation on later requests; the
// current request surfaces the failure.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("endpoint %s unreachable: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RemoteCallError means the endpoint accepted the connection but rejected or
// errored on a specific call. Never retried within the call.
type RemoteCallError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s failed (%d): %s", e.Method, e.Code, e.Message)
}

// MethodNotAvailableError means the endpoint advertises no query capability
// for the requested method.
type MethodNotAvailableError struct {
	Method string
}

func (e *MethodNotAvailableError) Error() string {
	return fmt.Sprintf("method %s not available on endpoint", e.Method)
}

// ValidationError is malformed or missing caller input, detected before any
// network activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StepError tags a transaction orchestration failure with the failing step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transaction step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
