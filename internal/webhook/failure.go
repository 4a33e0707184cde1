package webhook

import "fmt"

type FailureKind string

const (
	// KindTransport is a completed exchange with a non-2xx status.
	KindTransport FailureKind = "transport-error"
	// KindNetwork covers requests that never completed and unreadable bodies.
	KindNetwork FailureKind = "network-error"
)

// Failure is the error returned by Client.Send.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.Kind == KindTransport {
		return fmt.Sprintf("%s: status %d", f.Kind, f.StatusCode)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }
