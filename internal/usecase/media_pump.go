package usecase

import (
	"errors"
	"fmt"
	"io"
	"time"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

// pumpMediaChunks turns stream reads into data-available events on the recorder.
func pumpMediaChunks(
	stream ports.MediaStream,
	recorder *Recorder,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 32 * 1024
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			recorder.Append(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				events.SessionError(domain.ErrorCodeRecording, fmt.Sprintf("media capture error: %v", err))
			}
			return
		}
	}
}

// waitForPump waits for the pump to drain; on timeout it closes the stream so
// the pump unblocks.
func waitForPump(stream ports.MediaStream, done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		_ = stream.Close()
		<-done
		return false
	}
}
