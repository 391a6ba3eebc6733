package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

const (
	mediaTypeVideoWebM = "video/webm"
	mediaTypeAudioWebM = "audio/webm"
	mediaTypeJPEG      = "image/jpeg"

	snapshotWait = 2 * time.Second
)

var errSourceClosed = errors.New("media source is closed")

// FFMPEGDevices acquires camera and microphone access and records through ffmpeg.
type FFMPEGDevices struct {
	command      string
	startupGrace time.Duration
}

func NewFFMPEGDevices(command string) *FFMPEGDevices {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGDevices{command: command, startupGrace: 250 * time.Millisecond}
}

// Acquire opens the requested devices. With video enabled the camera stays
// held by a preview process until the source is closed.
func (d *FFMPEGDevices) Acquire(ctx context.Context, cfg ports.MediaConfig) (ports.MediaSource, error) {
	cfg = withDefaults(cfg)

	if !cfg.VideoEnabled && !cfg.AudioEnabled {
		return nil, &domain.AcquisitionError{Kind: domain.AcquisitionUnavailable, Err: errors.New("neither video nor audio requested")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.AcquisitionError{Kind: domain.AcquisitionUnavailable, Err: err}
	}
	if _, err := exec.LookPath(d.command); err != nil {
		return nil, &domain.AcquisitionError{Kind: domain.AcquisitionUnavailable, Err: fmt.Errorf("capture command %q: %w", d.command, err)}
	}

	if cfg.VideoEnabled {
		if err := checkDevice(cfg.VideoDevice); err != nil {
			return nil, err
		}
	}
	if cfg.AudioEnabled {
		if err := checkDevice(cfg.AudioDevice); err != nil {
			return nil, err
		}
	}

	source := &ffmpegSource{command: d.command, cfg: cfg, startupGrace: d.startupGrace}
	if !cfg.VideoEnabled {
		return source, nil
	}

	source.feed = newFrameFeed()
	if err := source.startPreview(); err != nil {
		source.feed.close()
		var acqErr *domain.AcquisitionError
		if errors.As(err, &acqErr) {
			return nil, acqErr
		}
		return nil, &domain.AcquisitionError{Kind: domain.AcquisitionUnavailable, Device: cfg.VideoDevice, Err: err}
	}
	return source, nil
}

func withDefaults(cfg ports.MediaConfig) ports.MediaConfig {
	if cfg.VideoFormat == "" {
		cfg.VideoFormat = "v4l2"
	}
	if cfg.VideoDevice == "" {
		cfg.VideoDevice = "/dev/video0"
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "pulse"
	}
	if cfg.AudioDevice == "" {
		cfg.AudioDevice = "default"
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	if cfg.PreviewRate <= 0 {
		cfg.PreviewRate = 10
	}
	return cfg
}

// checkDevice opens device nodes given by absolute path. Named devices such as
// pulse sources are left for ffmpeg to resolve.
func checkDevice(device string) error {
	if !filepath.IsAbs(device) {
		return nil
	}

	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return &domain.AcquisitionError{Kind: classifyOpenErr(err), Device: device, Err: err}
	}
	return f.Close()
}

func classifyOpenErr(err error) domain.AcquisitionKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return domain.AcquisitionPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return domain.AcquisitionNoDevice
	case errors.Is(err, syscall.EBUSY):
		return domain.AcquisitionDeviceBusy
	default:
		return domain.AcquisitionUnavailable
	}
}

type ffmpegSource struct {
	command      string
	cfg          ports.MediaConfig
	startupGrace time.Duration

	// feed is nil for audio-only capture.
	feed *frameFeed

	// deviceMu hands the camera between the preview and a recording.
	deviceMu sync.Mutex
	preview  *ffmpegProcess

	mu     sync.Mutex
	closed bool
}

// startPreview must be called with deviceMu held or before the source is shared.
func (s *ffmpegSource) startPreview() error {
	reader, writer := io.Pipe()
	go s.feed.consume(reader)

	proc, err := startProcess(context.Background(), s.command, previewArgs(s.cfg), writer, nil, s.startupGrace, s.cfg.VideoDevice)
	if err != nil {
		return err
	}
	proc.onKill = func() { _ = reader.CloseWithError(io.ErrClosedPipe) }
	s.preview = proc
	return nil
}

func (s *ffmpegSource) stopPreview() {
	if s.preview == nil {
		return
	}
	_ = s.preview.stop()
	s.preview = nil
}

// Record releases the camera from the preview and starts a recording that
// also feeds the preview, so Snapshot keeps working while it runs.
func (s *ffmpegSource) Record(ctx context.Context) (ports.MediaStream, error) {
	if s.isClosed() {
		return nil, errSourceClosed
	}

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	mediaType := mediaTypeVideoWebM
	device := s.cfg.VideoDevice
	if !s.cfg.VideoEnabled {
		mediaType = mediaTypeAudioWebM
		device = s.cfg.AudioDevice
	}

	s.stopPreview()

	var tap *os.File
	if s.feed != nil {
		tapReader, tapWriter, err := os.Pipe()
		if err != nil {
			s.resumePreview()
			return nil, fmt.Errorf("failed to open preview tap: %w", err)
		}
		tap = tapWriter
		go s.feed.consume(tapReader)
	}

	// Stdout goes through an io.Pipe so Wait does not close the read side
	// before the pump has drained the container tail.
	reader, writer := io.Pipe()
	proc, err := startProcess(ctx, s.command, recordArgs(s.cfg), writer, tap, s.startupGrace, device)
	if err != nil {
		_ = reader.Close()
		s.resumePreview()
		return nil, err
	}
	proc.onKill = func() { _ = reader.CloseWithError(io.ErrClosedPipe) }

	return &ffmpegStream{stdout: reader, process: proc, mediaType: mediaType, source: s}, nil
}

// resumePreview restarts the preview after a recording. It must be called
// with deviceMu held.
func (s *ffmpegSource) resumePreview() {
	if s.feed == nil || s.isClosed() {
		return
	}
	_ = s.startPreview()
}

func (s *ffmpegSource) recordingEnded() {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	s.resumePreview()
}

// Snapshot returns the latest live frame.
func (s *ffmpegSource) Snapshot(ctx context.Context) (domain.Frame, error) {
	if s.isClosed() {
		return domain.Frame{}, errSourceClosed
	}
	if s.feed == nil {
		return domain.Frame{}, errors.New("video capture is disabled")
	}

	frame, err := s.feed.latestFrame(ctx, snapshotWait)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("ffmpeg snapshot failed: %w", err)
	}
	return frame, nil
}

func (s *ffmpegSource) Preview() <-chan domain.Frame {
	if s.feed == nil {
		return nil
	}
	return s.feed.frames()
}

func (s *ffmpegSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	var err error
	if s.preview != nil {
		err = s.preview.stop()
		s.preview = nil
	}
	if s.feed != nil {
		s.feed.close()
	}
	return err
}

func (s *ffmpegSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func inputArgs(cfg ports.MediaConfig) []string {
	var args []string
	if cfg.VideoEnabled {
		args = append(args, "-f", cfg.VideoFormat, "-framerate", strconv.Itoa(cfg.FrameRate))
		if cfg.Width > 0 && cfg.Height > 0 {
			args = append(args, "-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
		}
		args = append(args, "-i", cfg.VideoDevice)
	}
	if cfg.AudioEnabled {
		args = append(args, "-f", cfg.AudioFormat, "-i", cfg.AudioDevice)
	}
	return args
}

func mjpegArgs(cfg ports.MediaConfig) []string {
	return []string{"-an", "-vf", "fps=" + strconv.Itoa(cfg.PreviewRate), "-f", "image2pipe", "-c:v", "mjpeg", "-q:v", "7"}
}

func previewArgs(cfg ports.MediaConfig) []string {
	video := cfg
	video.AudioEnabled = false
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	args = append(args, inputArgs(video)...)
	args = append(args, mjpegArgs(cfg)...)
	return append(args, "-")
}

// recordArgs writes the webm recording to stdout and, with video, a preview
// MJPEG stream to fd 3.
func recordArgs(cfg ports.MediaConfig) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	args = append(args, inputArgs(cfg)...)

	audioInput := 0
	if cfg.VideoEnabled {
		audioInput = 1
		args = append(args, "-map", "0:v")
		args = append(args, mjpegArgs(cfg)...)
		args = append(args, "pipe:3")
		args = append(args, "-map", "0:v", "-c:v", "libvpx", "-deadline", "realtime", "-b:v", "1M")
	}
	if cfg.AudioEnabled {
		args = append(args, "-map", strconv.Itoa(audioInput)+":a", "-c:a", "libopus")
	}
	return append(args, "-f", "webm", "-")
}

type ffmpegStream struct {
	stdout  *io.PipeReader
	process *ffmpegProcess
	source  *ffmpegSource

	mediaType string

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegStream) MediaType() string {
	return s.mediaType
}

func (s *ffmpegStream) Close() error {
	err := s.Stop()
	_ = s.stdout.Close()
	return err
}

// Stop ends the recording and hands the camera back to the preview.
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.process.stop()
		if s.source != nil {
			s.source.recordingEnded()
		}
	})
	return s.stopErr
}
