package usecase

import (
	"signsync/internal/ports"
)

// activeRecording is the stream and pump of the recording in progress.
type activeRecording struct {
	cancel func()
	stream ports.MediaStream

	pumpDone chan struct{}
}
