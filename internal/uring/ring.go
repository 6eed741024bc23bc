// Package uring wraps one io_uring instance for batched reads.
//
// A Ring owns three kernel-shared memory regions (the submission ring, the
// completion ring and the SQE array) and never exposes them. Callers queue
// tagged reads, submit them in one system call and then poll completions until
// the ring reports that every submitted request is accounted for.
package uring

import (
	"errors"
	"fmt"
)

// MaxEntries is the kernel's upper bound on submission queue entries.
const MaxEntries = 32768

// ErrFeatureMissing is returned (wrapped in a SetupError) when the kernel
// lacks IORING_FEAT_NODROP, so completions could be lost under pressure.
var ErrFeatureMissing = errors.New("io_uring: kernel lacks IORING_FEAT_NODROP")

// Completion is one finished request. Result is the byte count on success or
// a negated errno.
type Completion struct {
	Tag    uint64
	Result int32
}

// PollState tells a drain loop what to do next.
type PollState int

const (
	// PollReady means the returned Completion is valid.
	PollReady PollState = iota
	// PollPending means submitted work is still in flight; poll again.
	PollPending
	// PollDrained means every submitted request has been returned.
	PollDrained
)

func (s PollState) String() string {
	switch s {
	case PollReady:
		return "ready"
	case PollPending:
		return "pending"
	case PollDrained:
		return "drained"
	default:
		return fmt.Sprintf("PollState(%d)", int(s))
	}
}

// SetupError reports a failure to create a ring.
type SetupError struct {
	Entries int
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("io_uring setup with %d entries: %v", e.Entries, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// SubmitError reports a rejected batch. Code is the errno when the system call
// failed, or zero when the kernel accepted fewer entries than were queued.
type SubmitError struct {
	Code      int
	Submitted int
	Queued    int
}

func (e *SubmitError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("io_uring submit failed: errno %d", e.Code)
	}
	return fmt.Sprintf("io_uring submit accepted %d of %d entries", e.Submitted, e.Queued)
}

// clampEntries bounds a requested capacity to what io_uring_setup accepts.
func clampEntries(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxEntries {
		return MaxEntries
	}
	return n
}
