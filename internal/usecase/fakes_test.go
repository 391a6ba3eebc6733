package usecase

import (
	"context"
	"io"
	"sync"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

type fakeDevices struct {
	mu     sync.Mutex
	source ports.MediaSource
	err    error
	calls  int
}

func (f *fakeDevices) Acquire(_ context.Context, _ ports.MediaConfig) (ports.MediaSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

func (f *fakeDevices) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSource struct {
	mu         sync.Mutex
	streams    []*fakeStream
	recordErr  error
	frame      domain.Frame
	snapErr    error
	preview    chan domain.Frame
	closeCalls int
}

func (f *fakeSource) Record(_ context.Context) (ports.MediaStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	if len(f.streams) == 0 {
		return newFakeStream(), nil
	}
	stream := f.streams[0]
	f.streams = f.streams[1:]
	return stream, nil
}

func (f *fakeSource) Snapshot(_ context.Context) (domain.Frame, error) {
	return f.frame, f.snapErr
}

func (f *fakeSource) Preview() <-chan domain.Frame {
	if f.preview == nil {
		return nil
	}
	return f.preview
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

// fakeStream delivers its queued chunks, then blocks until stopped.
type fakeStream struct {
	mu        sync.Mutex
	chunks    [][]byte
	readErr   error
	mediaType string

	stopped    chan struct{}
	stopOnce   sync.Once
	stopCalls  int
	closeCalls int
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	return &fakeStream{chunks: chunks, mediaType: "video/webm", stopped: make(chan struct{})}
}

func (f *fakeStream) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		chunk := f.chunks[0]
		f.chunks = f.chunks[1:]
		f.mu.Unlock()
		return copy(p, chunk), nil
	}
	readErr := f.readErr
	f.mu.Unlock()

	if readErr != nil {
		return 0, readErr
	}
	<-f.stopped
	return 0, io.EOF
}

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeStream) MediaType() string { return f.mediaType }

func (f *fakeStream) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeStream) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls + f.closeCalls
}

type fakeTranscoder struct {
	err error
}

func (f fakeTranscoder) Transcode(_ context.Context, blob domain.Blob) (domain.Blob, error) {
	if f.err != nil {
		return domain.Blob{}, f.err
	}
	return blob, nil
}

type dispatchCall struct {
	blob  domain.Blob
	frame domain.Frame
	task  domain.Task
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	result domain.PredictionResult
	err    error

	// block, when set, holds the dispatch until its context is done.
	block   bool
	entered chan struct{}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, blob domain.Blob, task domain.Task) (domain.PredictionResult, error) {
	return f.record(ctx, dispatchCall{blob: blob, task: task})
}

func (f *fakeDispatcher) DispatchFrame(ctx context.Context, frame domain.Frame, task domain.Task) (domain.PredictionResult, error) {
	return f.record(ctx, dispatchCall{frame: frame, task: task})
}

func (f *fakeDispatcher) record(ctx context.Context, call dispatchCall) (domain.PredictionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	block := f.block
	entered := f.entered
	f.mu.Unlock()

	if block {
		if entered != nil {
			close(entered)
		}
		<-ctx.Done()
		return domain.PredictionResult{}, &domain.DispatchError{Endpoint: "/predict", Err: ctx.Err()}
	}
	return f.result, f.err
}

func (f *fakeDispatcher) snapshotCalls() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeLabels struct {
	err error
}

func (f fakeLabels) Map(result domain.PredictionResult) (domain.PredictionResult, error) {
	if f.err != nil {
		return domain.PredictionResult{Emotion: domain.Label{Value: "mapped"}}, f.err
	}
	return result, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(task domain.Task, result domain.PredictionResult) domain.Presentation {
	return domain.Presentation{
		Task:   task,
		Title:  "Prediction Results",
		Fields: []domain.PresentationField{{Key: "emotion", Value: result.Emotion.Value, Detected: result.Emotion.Present()}},
	}
}

type fakeEventSink struct {
	mu sync.Mutex

	states  []stateEvent
	tasks   []domain.Task
	results  []domain.Presentation
	previews []domain.Frame
	errors   []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) TaskChanged(task domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}

func (f *fakeEventSink) ResultReady(presentation domain.Presentation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, presentation)
}

func (f *fakeEventSink) PreviewFrame(frame domain.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, frame)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotResults() []domain.Presentation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Presentation, len(f.results))
	copy(out, f.results)
	return out
}

func (f *fakeEventSink) snapshotPreviews() []domain.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Frame, len(f.previews))
	copy(out, f.previews)
	return out
}

func (f *fakeEventSink) lastState() stateEvent {
	states := f.snapshotStates()
	if len(states) == 0 {
		return stateEvent{}
	}
	return states[len(states)-1]
}
