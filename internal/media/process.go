package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"signsync/internal/domain"
)

const stopTimeout = 1500 * time.Millisecond

// ffmpegProcess is a running capture process writing to stdout and, for
// recordings, to a preview tap on fd 3.
type ffmpegProcess struct {
	process *os.Process
	stderr  *bytes.Buffer
	waitErr <-chan error

	// onKill runs when ffmpeg ignores the interrupt and has to be killed.
	onKill func()

	stopped chan struct{}
	stopErr error
}

// startProcess runs ffmpeg and waits out the startup grace. An exit inside the
// grace is reported as a start failure, classified from ffmpeg's stderr.
func startProcess(ctx context.Context, command string, args []string, stdout *io.PipeWriter, tap *os.File, grace time.Duration, device string) (*ffmpegProcess, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if tap != nil {
		cmd.ExtraFiles = []*os.File{tap}
	}

	err := cmd.Start()
	if tap != nil {
		_ = tap.Close()
	}
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = stdout.Close()
		waitErr <- err
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		return nil, startFailure(err, stderr.String(), device)
	case <-time.After(grace):
	}

	return &ffmpegProcess{
		process: cmd.Process,
		stderr:  stderr,
		waitErr: waitErr,
		stopped: make(chan struct{}),
	}, nil
}

// stop interrupts ffmpeg so it can flush its outputs, then kills it if it does
// not exit in time. It is safe to call more than once.
func (p *ffmpegProcess) stop() error {
	select {
	case <-p.stopped:
		return p.stopErr
	default:
	}

	_ = p.process.Signal(os.Interrupt)

	var err error
	select {
	case werr, ok := <-p.waitErr:
		if ok {
			err = normalizeStopErr(werr)
		}
	case <-time.After(stopTimeout):
		_ = p.process.Kill()
		if p.onKill != nil {
			p.onKill()
		}
		if werr, ok := <-p.waitErr; ok {
			err = normalizeStopErr(werr)
		}
	}

	if err != nil && p.stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, trimSpace(p.stderr.String()))
	}
	p.stopErr = err
	close(p.stopped)
	return err
}

func startFailure(err error, stderr string, device string) error {
	detail := trimSpace(stderr)
	cause := errors.New("ffmpeg exited before capture started")
	if err != nil {
		cause = fmt.Errorf("ffmpeg exited before capture started: %w", err)
	}
	if detail != "" {
		cause = fmt.Errorf("%w: %s", cause, detail)
	}

	if kind, ok := classifyFFMPEGOutput(detail); ok {
		return &domain.AcquisitionError{Kind: kind, Device: device, Err: cause}
	}
	return cause
}

// classifyFFMPEGOutput maps the device errors ffmpeg prints on stderr. A busy
// v4l2 camera opens fine and only fails when streaming starts.
func classifyFFMPEGOutput(stderr string) (domain.AcquisitionKind, bool) {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "device or resource busy"):
		return domain.AcquisitionDeviceBusy, true
	case strings.Contains(lower, "permission denied"):
		return domain.AcquisitionPermissionDenied, true
	case strings.Contains(lower, "no such file or directory"), strings.Contains(lower, "no such device"):
		return domain.AcquisitionNoDevice, true
	default:
		return "", false
	}
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	return err
}

func trimSpace(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
