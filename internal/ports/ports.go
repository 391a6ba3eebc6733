package ports

import (
	"context"
	"io"

	"signsync/internal/domain"
)

// MediaConfig describes which capabilities to request and how to capture them.
type MediaConfig struct {
	VideoEnabled bool
	AudioEnabled bool

	VideoFormat string
	VideoDevice string
	AudioFormat string
	AudioDevice string

	FrameRate int
	Width     int
	Height    int

	// PreviewRate is the live preview frame rate in frames per second.
	PreviewRate int
}

// MediaStream is a live recording of the acquired devices.
type MediaStream interface {
	io.ReadCloser
	Stop() error
	MediaType() string
}

// MediaSource is an acquired camera/microphone handle. While it is open it
// holds the camera and publishes live frames on Preview; Snapshot returns the
// most recent of them, also during a recording.
type MediaSource interface {
	Record(ctx context.Context) (MediaStream, error)
	Snapshot(ctx context.Context) (domain.Frame, error)
	// Preview is nil when no video is captured. It is closed by Close.
	Preview() <-chan domain.Frame
	Close() error
}

// DeviceAcquirer requests device access from the host.
type DeviceAcquirer interface {
	Acquire(ctx context.Context, cfg MediaConfig) (MediaSource, error)
}

// Transcoder rewraps a finalized recording before it is sent.
type Transcoder interface {
	Transcode(ctx context.Context, blob domain.Blob) (domain.Blob, error)
}

// Dispatcher sends captures to the prediction relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, blob domain.Blob, task domain.Task) (domain.PredictionResult, error)
	DispatchFrame(ctx context.Context, frame domain.Frame, task domain.Task) (domain.PredictionResult, error)
}

// LabelMapper turns raw recognizer values into display labels.
type LabelMapper interface {
	Map(result domain.PredictionResult) (domain.PredictionResult, error)
}

// Renderer builds the presentation for a task's result.
type Renderer interface {
	Render(task domain.Task, result domain.PredictionResult) domain.Presentation
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	TaskChanged(task domain.Task)
	ResultReady(presentation domain.Presentation)
	PreviewFrame(frame domain.Frame)
	SessionError(code domain.ErrorCode, detail string)
}
