package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active capture session")
	ErrEmptyRecording  = errors.New("no video captured")
	ErrViewClosed      = errors.New("capture view is closed")
)

// Config controls capture behavior.
type Config struct {
	Media        ports.MediaConfig
	ChunkSize    int
	DrainTimeout time.Duration
	DefaultTask  domain.Task
}

// Dependencies groups the collaborators of a CaptureController.
type Dependencies struct {
	Devices    ports.DeviceAcquirer
	Transcoder ports.Transcoder
	Dispatcher ports.Dispatcher
	Labels     ports.LabelMapper
	Renderer   ports.Renderer
	Events     ports.EventSink
	Logger     *zap.Logger
}

// CaptureController owns one capture view: its device session, the recording
// buffer and the selected task.
type CaptureController struct {
	devices   ports.DeviceAcquirer
	events    ports.EventSink
	finalizer resultFinalizer
	logger    *zap.Logger
	cfg       Config

	sessionID string
	recorder  *Recorder
	tasks     *TaskSelector

	lifetime context.Context
	shutdown context.CancelFunc

	acquireOnce sync.Once
	acquireErr  error

	// opMu orders start, stop, capture and abort so a stop is never handled
	// before its start has finished.
	opMu sync.Mutex

	mu      sync.Mutex
	source  ports.MediaSource
	current *activeRecording
	state   domain.SessionState
	closed  bool
}

func NewCaptureController(deps Dependencies, cfg Config) *CaptureController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 32 * 1024
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 4 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sessionID := uuid.NewString()
	logger = logger.With(zap.String("capture_session", sessionID))
	lifetime, shutdown := context.WithCancel(context.Background())

	return &CaptureController{
		devices:   deps.Devices,
		events:    deps.Events,
		finalizer: newResultFinalizer(deps.Transcoder, deps.Dispatcher, deps.Labels, deps.Renderer, deps.Events, logger),
		logger:    logger,
		cfg:       cfg,
		sessionID: sessionID,
		recorder:  NewRecorder(),
		tasks:     NewTaskSelector(cfg.DefaultTask),
		lifetime:  lifetime,
		shutdown:  shutdown,
		state:     domain.SessionStateCold,
	}
}

// Acquire requests device access. Only the first call reaches the devices;
// later calls return the same outcome.
func (c *CaptureController) Acquire(ctx context.Context) error {
	c.acquireOnce.Do(func() {
		source, err := c.devices.Acquire(ctx, c.cfg.Media)
		if err != nil {
			c.acquireErr = err
			c.logger.Warn("device acquisition failed", zap.Error(err))
			c.setState(domain.SessionStateError)
			c.events.SessionError(domain.ErrorCodeAcquisition, err.Error())
			c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonAcquisitionFailed)
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = source.Close()
			c.acquireErr = ErrViewClosed
			return
		}
		c.source = source
		c.state = domain.SessionStateReady
		c.mu.Unlock()

		c.logger.Info("devices acquired",
			zap.Bool("video", c.cfg.Media.VideoEnabled),
			zap.Bool("audio", c.cfg.Media.AudioEnabled))
		c.events.SessionStateChanged(domain.SessionStateReady, domain.SessionReasonDeviceReady)

		if frames := source.Preview(); frames != nil {
			go c.forwardPreview(frames)
		}
	})
	return c.acquireErr
}

// forwardPreview relays live frames to the view until the source closes them
// or the view is closed.
func (c *CaptureController) forwardPreview(frames <-chan domain.Frame) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if c.isClosed() {
				return
			}
			c.events.PreviewFrame(frame)
		case <-c.lifetime.Done():
			return
		}
	}
}

// Start begins a new recording. A recording already in progress is discarded.
func (c *CaptureController) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	source, previous, err := c.takeForStart()
	if err != nil {
		c.reportSequenceError(err)
		return err
	}

	if previous != nil {
		c.stopRecording(previous)
		c.recorder.Discard()
	}

	recordingCtx, cancel := context.WithCancel(ctx)
	stream, err := source.Record(recordingCtx)
	if err != nil {
		cancel()
		c.setState(domain.SessionStateReady)
		c.events.SessionError(domain.ErrorCodeRecording, err.Error())
		return fmt.Errorf("start recording: %w", err)
	}

	c.recorder.Begin()
	active := &activeRecording{
		cancel:   cancel,
		stream:   stream,
		pumpDone: make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = stream.Close()
		c.recorder.Discard()
		return ErrViewClosed
	}
	c.current = active
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	go pumpMediaChunks(active.stream, c.recorder, c.cfg.ChunkSize, c.events, active.pumpDone)

	reason := domain.SessionReasonRecordingStarted
	if previous != nil {
		reason = domain.SessionReasonRecordingRestarted
	}
	c.logger.Info("recording started", zap.String("task", string(c.tasks.Current())))
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// Stop finalizes the current recording and sends it for the selected task.
// Stopping when nothing is recording is a no-op.
func (c *CaptureController) Stop(ctx context.Context) (domain.StopResult, error) {
	blob, ok := c.finalizeCurrent()
	if !ok {
		return domain.StopResult{}, nil
	}

	task := c.tasks.Current()
	if blob.Size() == 0 {
		c.events.SessionError(domain.ErrorCodeRecording, ErrEmptyRecording.Error())
		c.finish(domain.SessionStateReady, domain.SessionReasonNoVideo)
		return domain.StopResult{}, ErrEmptyRecording
	}

	c.logger.Info("recording finalized",
		zap.Int("bytes", blob.Size()),
		zap.String("media_type", blob.MediaType),
		zap.String("task", string(task)))
	c.markDispatching(domain.SessionReasonDispatching)

	dispatchCtx, cancel := c.dispatchContext(ctx)
	defer cancel()

	result, reason, err := c.finalizer.FinalizeRecording(dispatchCtx, blob, task)
	return c.complete(result, reason, err)
}

// Capture grabs a single frame and sends it for the selected task.
func (c *CaptureController) Capture(ctx context.Context) (domain.StopResult, error) {
	frame, err := c.snapshot(ctx)
	if err != nil {
		return domain.StopResult{}, err
	}

	task := c.tasks.Current()
	c.logger.Info("frame captured", zap.Int("bytes", len(frame.Data)), zap.String("task", string(task)))
	c.markDispatching(domain.SessionReasonFrameCaptured)

	dispatchCtx, cancel := c.dispatchContext(ctx)
	defer cancel()

	result, reason, err := c.finalizer.FinalizeFrame(dispatchCtx, frame, task)
	return c.complete(result, reason, err)
}

// Abort discards the current recording without sending it.
func (c *CaptureController) Abort() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	active := c.takeCurrent()
	if active == nil {
		return nil
	}

	c.stopRecording(active)
	c.recorder.Discard()
	c.finish(domain.SessionStateReady, domain.SessionReasonRecordingDiscarded)
	return nil
}

// SelectTask changes the task used by the next dispatch.
func (c *CaptureController) SelectTask(task domain.Task) error {
	if err := c.tasks.Select(task); err != nil {
		return err
	}
	c.events.TaskChanged(task)
	return nil
}

func (c *CaptureController) Task() domain.Task {
	return c.tasks.Current()
}

// Status returns the current backend status.
func (c *CaptureController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:     c.state,
		Recording: c.current != nil,
		Acquired:  c.source != nil,
		Task:      c.tasks.Current(),
		SessionID: c.sessionID,
	}
}

// Close tears the view down: it cancels in-flight dispatches, discards any
// recording and releases the devices.
func (c *CaptureController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	active := c.current
	c.current = nil
	source := c.source
	c.source = nil
	c.state = domain.SessionStateClosed
	c.mu.Unlock()

	c.shutdown()

	if active != nil {
		c.stopRecording(active)
		c.recorder.Discard()
	}

	var err error
	if source != nil {
		err = source.Close()
	}

	c.logger.Info("capture view closed")
	c.events.SessionStateChanged(domain.SessionStateClosed, domain.SessionReasonViewClosed)
	return err
}

func (c *CaptureController) takeForStart() (ports.MediaSource, *activeRecording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrViewClosed
	}
	if c.source == nil {
		return nil, nil, ErrNoActiveSession
	}
	previous := c.current
	c.current = nil
	return c.source, previous, nil
}

func (c *CaptureController) takeCurrent() *activeRecording {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.current
	c.current = nil
	return active
}

func (c *CaptureController) finalizeCurrent() (domain.Blob, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	active := c.takeCurrent()
	if active == nil {
		return domain.Blob{}, false
	}

	c.setState(domain.SessionStateFinalizing)
	c.events.SessionStateChanged(domain.SessionStateFinalizing, domain.SessionReasonFinalizing)

	if err := active.stream.Stop(); err != nil {
		c.logger.Warn("capture did not stop cleanly", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeRecording, "failed to stop capture cleanly")
	}
	if !waitForPump(active.stream, active.pumpDone, c.cfg.DrainTimeout) {
		c.logger.Warn("capture drain timed out", zap.Duration("timeout", c.cfg.DrainTimeout))
	}

	data, _ := c.recorder.Finalize()
	active.cancel()
	_ = active.stream.Close()

	mediaType := active.stream.MediaType()
	return domain.Blob{Data: data, MediaType: mediaType, FileName: fileNameFor(mediaType)}, true
}

func (c *CaptureController) snapshot(ctx context.Context) (domain.Frame, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	source, closed := c.source, c.closed
	c.mu.Unlock()

	if closed {
		c.reportSequenceError(ErrViewClosed)
		return domain.Frame{}, ErrViewClosed
	}
	if source == nil {
		c.reportSequenceError(ErrNoActiveSession)
		return domain.Frame{}, ErrNoActiveSession
	}

	frame, err := source.Snapshot(ctx)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeRecording, err.Error())
		return domain.Frame{}, fmt.Errorf("capture frame: %w", err)
	}
	return frame, nil
}

func (c *CaptureController) stopRecording(active *activeRecording) {
	active.cancel()
	_ = active.stream.Close()
	<-active.pumpDone
}

// dispatchContext derives a request context that is also cancelled by Close.
func (c *CaptureController) dispatchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	dispatchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.lifetime, cancel)
	return dispatchCtx, func() {
		stop()
		cancel()
	}
}

// complete publishes a dispatch outcome unless the view has been closed.
func (c *CaptureController) complete(result domain.StopResult, reason domain.SessionStateReason, err error) (domain.StopResult, error) {
	if c.isClosed() {
		c.logger.Debug("dropping result for closed view", zap.String("reason", string(reason)))
		return domain.StopResult{}, ErrViewClosed
	}
	if err != nil {
		c.logger.Warn("dispatch failed", zap.String("reason", string(reason)), zap.Error(err))
		c.finish(domain.SessionStateError, reason)
		return domain.StopResult{}, err
	}

	c.events.ResultReady(result.Presentation)
	c.finish(domain.SessionStateReady, reason)
	return result, nil
}

func (c *CaptureController) markDispatching(reason domain.SessionStateReason) {
	if c.setStateUnlessRecording(domain.SessionStateDispatching) {
		c.events.SessionStateChanged(domain.SessionStateDispatching, reason)
	}
}

// finish settles the view state after an operation. A recording started in
// the meantime keeps its state.
func (c *CaptureController) finish(state domain.SessionState, reason domain.SessionStateReason) {
	if c.setStateUnlessRecording(state) {
		c.events.SessionStateChanged(state, reason)
	}
}

func (c *CaptureController) setStateUnlessRecording(state domain.SessionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.current != nil {
		return false
	}
	c.state = state
	return true
}

func (c *CaptureController) setState(state domain.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.state = state
	}
}

func (c *CaptureController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *CaptureController) reportSequenceError(err error) {
	c.events.SessionError(domain.ErrorCodeSequence, err.Error())
}

func fileNameFor(mediaType string) string {
	kind, ext, ok := strings.Cut(mediaType, "/")
	if !ok || kind == "" || ext == "" {
		return "video"
	}
	return kind + "." + ext
}
