//go:build linux

package uring

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openOrSkip opens a ring, skipping when the kernel or sandbox forbids io_uring.
func openOrSkip(t *testing.T, capacity int) *Ring {
	t.Helper()
	r, err := Open(capacity)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func openFile(t *testing.T, path string) int {
	t.Helper()
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

// drain polls until the ring reports PollDrained.
func drain(t *testing.T, r *Ring) []Completion {
	t.Helper()
	var out []Completion
	for spins := 0; spins < 1_000_000; spins++ {
		c, state := r.PollNext()
		switch state {
		case PollReady:
			out = append(out, c)
		case PollPending:
			runtime.Gosched()
		case PollDrained:
			return out
		}
	}
	t.Fatal("ring never drained")
	return nil
}

func TestOpen_CapacityIsPowerOfTwo(t *testing.T) {
	r := openOrSkip(t, 100)

	c := r.Capacity()
	assert.GreaterOrEqual(t, c, 100)
	assert.Equal(t, 0, c&(c-1), "capacity %d is not a power of two", c)
}

func TestReadBatch(t *testing.T) {
	r := openOrSkip(t, 8)
	dir := t.TempDir()

	contents := map[uint64]string{
		1:       "alpha",
		2:       "bravo charlie",
		1 << 63: "secondary",
	}
	bufs := make(map[uint64][]byte)
	for tag, text := range contents {
		path := filepath.Join(dir, text)
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
		bufs[tag] = make([]byte, 64)
	}

	r.Reset()
	for tag, text := range contents {
		r.Enqueue(tag, bufs[tag], openFile(t, filepath.Join(dir, text)))
	}
	require.NoError(t, r.SubmitAll())

	got := drain(t, r)
	require.Len(t, got, len(contents))
	for _, c := range got {
		want, ok := contents[c.Tag]
		require.True(t, ok, "unexpected tag %x", c.Tag)
		require.Equal(t, int32(len(want)), c.Result)
		assert.Equal(t, want, string(bufs[c.Tag][:c.Result]))
	}

	// Once drained, further polls stay drained.
	_, state := r.PollNext()
	assert.Equal(t, PollDrained, state)
}

func TestReadFailureIsPerRequest(t *testing.T) {
	r := openOrSkip(t, 4)
	dir := t.TempDir()

	dirFD := openFile(t, dir)
	path := filepath.Join(dir, "ok")
	require.NoError(t, os.WriteFile(path, []byte("ok"), 0o644))

	r.Reset()
	r.Enqueue(7, make([]byte, 16), dirFD)
	r.Enqueue(8, make([]byte, 16), openFile(t, path))
	require.NoError(t, r.SubmitAll())

	results := make(map[uint64]int32)
	for _, c := range drain(t, r) {
		results[c.Tag] = c.Result
	}
	assert.Equal(t, -int32(unix.EISDIR), results[7])
	assert.Equal(t, int32(2), results[8])
}

func TestSubmitInChunks(t *testing.T) {
	r := openOrSkip(t, 2)
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	fd := openFile(t, path)

	r.Reset()
	total := 0
	for chunk := 0; chunk < 3; chunk++ {
		for i := 0; i < r.Capacity(); i++ {
			r.Enqueue(uint64(total), make([]byte, 4), fd)
			total++
		}
		require.NoError(t, r.SubmitAll())
		assert.Len(t, drain(t, r), r.Capacity())
	}
	assert.Equal(t, uint64(total), r.submitted)
	assert.Equal(t, r.submitted, r.completed)
}

func TestSubmitAllEmpty(t *testing.T) {
	r := openOrSkip(t, 4)
	r.Reset()
	require.NoError(t, r.SubmitAll())

	_, state := r.PollNext()
	assert.Equal(t, PollDrained, state)
}

func TestResetWithdrawsUnsubmitted(t *testing.T) {
	r := openOrSkip(t, 4)
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	fd := openFile(t, path)

	r.Reset()
	r.Enqueue(1, make([]byte, 8), fd)
	r.Enqueue(2, make([]byte, 8), fd)
	r.Reset()

	r.Enqueue(3, make([]byte, 8), fd)
	require.NoError(t, r.SubmitAll())

	got := drain(t, r)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].Tag)
}

func TestCloseIdempotent(t *testing.T) {
	r, err := Open(4)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
