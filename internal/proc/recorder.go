package proc

// Recorder receives process table self-metrics. telemetry.Recorder
// implements it; a nil Recorder in Options records nothing.
type Recorder interface {
	ProcEntries(n int)
	ProcRemoved(n int)
	RingResized(capacity int)
	RingSubmitted()
}

type noopRecorder struct{}

func (noopRecorder) ProcEntries(int) {}
func (noopRecorder) ProcRemoved(int) {}
func (noopRecorder) RingResized(int) {}
func (noopRecorder) RingSubmitted()  {}
