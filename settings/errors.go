package settings

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package matches exactly one
// of them under errors.Is.
var (
	ErrUnrecognized = errors.New("unrecognized setting")
	ErrInvalid      = errors.New("invalid setting")
	ErrInstance     = errors.New("instance settings")
)

// UnrecognizedError reports a key no handler claims.
type UnrecognizedError struct {
	Key string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized setting: %q", e.Key)
}

func (e *UnrecognizedError) Unwrap() error { return ErrUnrecognized }

// InvalidError reports a value rejected by a spec or a property rule.
type InvalidError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid setting %q=%q: %s", e.Key, e.Value, e.Reason)
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }

// Operation distinguishes reads from writes in InstanceError.
type Operation int

const (
	Obtain Operation = iota
	Update
)

func (op Operation) String() string {
	if op == Obtain {
		return "cannot obtain instance settings"
	}
	return "cannot update instance settings"
}

// Reasons carried by InstanceError.
const (
	ReasonPreparing  = "instance is being prepared"
	ReasonDeleted    = "instance is deleted"
	ReasonNotFound   = "no such instance"
	ReasonNotStopped = "instance must be stopped for modification"
	ReasonNoState    = "cannot determine instance state"
)

// InstanceError reports an instance-scoped precondition failure.
// Err, when set, is the backend failure behind Reason.
type InstanceError struct {
	Op       Operation
	Instance string
	Reason   string
	Err      error
}

func (e *InstanceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s; instance: %s; reason: %s: %v", e.Op, e.Instance, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s; instance: %s; reason: %s", e.Op, e.Instance, e.Reason)
}

func (e *InstanceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInstance}
	}
	return []error{ErrInstance, e.Err}
}
