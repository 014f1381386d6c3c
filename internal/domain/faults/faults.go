package faults

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInput     Kind = "input"     //rejected at the boundary
	KindIntegrity Kind = "integrity" //hash mismatch, dimension mismatch
	KindTransient Kind = "transient" //network, throttling; retried locally
	KindPerFile   Kind = "per_file"  //isolated to one file in a job
	KindFatal     Kind = "fatal"     //startup configuration inconsistency
)

// Fault is the single error value that crosses component boundaries. The
// wrapped cause stays reachable through errors.Is/As.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Retryable is true only for transient faults; integrity and fatal faults
// must surface verbatim.
func (f *Fault) Retryable() bool { return f.Kind == KindTransient }

func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

func Input(format string, args ...any) *Fault {
	return &Fault{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

func Transient(message string, err error) *Fault {
	return &Fault{Kind: KindTransient, Message: message, Err: err}
}

func Integrity(format string, args ...any) *Fault {
	return &Fault{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies an arbitrary error; non-Fault errors default to
// transient so the retry budget, not the caller, decides their fate.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransient
}

// IsRetryable reports whether the retry machinery may re-attempt the
// operation that produced err.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}
