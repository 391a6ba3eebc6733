package usecase

import (
	"sync"
)

// RecorderState is the buffering state of a Recorder.
type RecorderState string

const (
	RecorderIdle       RecorderState = "idle"
	RecorderRecording  RecorderState = "recording"
	RecorderFinalizing RecorderState = "finalizing"
)

// Recorder buffers data chunks for one recording at a time. The buffer is
// empty whenever the recorder is idle.
type Recorder struct {
	mu     sync.Mutex
	state  RecorderState
	chunks [][]byte
	size   int
}

func NewRecorder() *Recorder {
	return &Recorder{state: RecorderIdle}
}

// Begin clears any residual chunks and starts accepting data.
func (r *Recorder) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = nil
	r.size = 0
	r.state = RecorderRecording
}

// Append records one data-available payload. Empty payloads and payloads that
// arrive outside a recording are dropped.
func (r *Recorder) Append(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording {
		return false
	}
	r.chunks = append(r.chunks, append([]byte(nil), chunk...))
	r.size += len(chunk)
	return true
}

// Finalize joins the buffered chunks in arrival order and clears the buffer.
// It is a no-op returning false when nothing is being recorded.
func (r *Recorder) Finalize() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RecorderRecording {
		return nil, false
	}
	r.state = RecorderFinalizing

	data := make([]byte, 0, r.size)
	for _, chunk := range r.chunks {
		data = append(data, chunk...)
	}

	r.chunks = nil
	r.size = 0
	r.state = RecorderIdle
	return data, true
}

// Discard drops any buffered chunks and returns to idle.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = nil
	r.size = 0
	r.state = RecorderIdle
}

func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Buffered returns the number of bytes currently held.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
