//go:build !linux

package uring

import "errors"

var errUnsupported = errors.New("io_uring requires Linux")

// Ring is unavailable outside Linux; Open always fails.
type Ring struct{}

// Open always returns a SetupError on this platform.
func Open(capacity int) (*Ring, error) {
	return nil, &SetupError{Entries: clampEntries(capacity), Err: errUnsupported}
}

func (r *Ring) Capacity() int                          { return 0 }
func (r *Ring) Reset()                                 {}
func (r *Ring) Enqueue(tag uint64, buf []byte, fd int) {}
func (r *Ring) SubmitAll() error                       { return nil }
func (r *Ring) PollNext() (Completion, PollState)      { return Completion{}, PollDrained }
func (r *Ring) Close() error                           { return nil }
