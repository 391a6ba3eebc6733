package domain

import "encoding/base64"

// SessionState models the capture view lifecycle.
type SessionState string

const (
	SessionStateCold        SessionState = "cold"
	SessionStateReady       SessionState = "ready"
	SessionStateRecording   SessionState = "recording"
	SessionStateFinalizing  SessionState = "finalizing"
	SessionStateDispatching SessionState = "dispatching"
	SessionStateError       SessionState = "error"
	SessionStateClosed      SessionState = "closed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonCameraCold         SessionStateReason = "camera_cold"
	SessionReasonDeviceReady        SessionStateReason = "device_ready"
	SessionReasonAcquisitionFailed  SessionStateReason = "acquisition_failed"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted SessionStateReason = "recording_restarted"
	SessionReasonFinalizing         SessionStateReason = "finalizing"
	SessionReasonDispatching        SessionStateReason = "dispatching"
	SessionReasonFrameCaptured      SessionStateReason = "frame_captured"
	SessionReasonResultReady        SessionStateReason = "result_ready"
	SessionReasonNoVideo            SessionStateReason = "no_video"
	SessionReasonRecordingDiscarded SessionStateReason = "recording_discarded"
	SessionReasonTranscodeFailed    SessionStateReason = "transcode_failed"
	SessionReasonDispatchFailed     SessionStateReason = "dispatch_failed"
	SessionReasonMalformedResponse  SessionStateReason = "malformed_response"
	SessionReasonViewClosed         SessionStateReason = "view_closed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeAcquisition ErrorCode = "acquisition"
	ErrorCodeSequence    ErrorCode = "sequence"
	ErrorCodeRecording   ErrorCode = "recording"
	ErrorCodeTranscode   ErrorCode = "transcode"
	ErrorCodeDispatch    ErrorCode = "dispatch"
	ErrorCodeResponse    ErrorCode = "response"
)

// Blob is a finalized recording ready to be sent.
type Blob struct {
	Data      []byte
	MediaType string
	FileName  string
}

func (b Blob) Size() int {
	return len(b.Data)
}

// Frame is a single still captured from the live stream.
type Frame struct {
	Data      []byte
	MediaType string
}

// DataURL encodes the frame as a data: URL, defaulting to JPEG.
func (f Frame) DataURL() string {
	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// StopResult is returned once a recording or frame has been dispatched and rendered.
type StopResult struct {
	Task         Task             `json:"task"`
	Bytes        int              `json:"bytes"`
	Result       PredictionResult `json:"result"`
	Presentation Presentation     `json:"presentation"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Recording bool         `json:"recording"`
	Acquired  bool         `json:"acquired"`
	Task      Task         `json:"task"`
	SessionID string       `json:"sessionId,omitempty"`
	Message   string       `json:"message,omitempty"`
}
