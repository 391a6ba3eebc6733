package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"signsync/internal/domain"
	"signsync/internal/ports"
)

// Transcode modes accepted by NewTranscoder.
const (
	TranscodeNone    = "none"
	TranscodeRelabel = "relabel"
	TranscodeRemux   = "remux"
)

// NewTranscoder builds the pre-send step for the configured mode.
func NewTranscoder(mode string, command string) (ports.Transcoder, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", TranscodeRelabel:
		return Relabel{MediaType: "video/mp4", FileName: "video.mp4"}, nil
	case TranscodeNone:
		return Passthrough{}, nil
	case TranscodeRemux:
		return NewFFMPEGRemuxer(command), nil
	default:
		return nil, fmt.Errorf("unknown transcode mode %q", mode)
	}
}

// Passthrough sends the recording as captured.
type Passthrough struct{}

func (Passthrough) Transcode(_ context.Context, blob domain.Blob) (domain.Blob, error) {
	return blob, nil
}

// Relabel changes only the container label and file name. The bytes are not
// converted, so a relay that actually demuxes MP4 will still receive WebM.
// Audio-only recordings keep their label.
type Relabel struct {
	MediaType string
	FileName  string
}

func (r Relabel) Transcode(_ context.Context, blob domain.Blob) (domain.Blob, error) {
	if !isVideo(blob) {
		return blob, nil
	}
	out := blob
	if r.MediaType != "" {
		out.MediaType = r.MediaType
	}
	if r.FileName != "" {
		out.FileName = r.FileName
	}
	return out, nil
}

// FFMPEGRemuxer copies the recorded streams into fragmented MP4.
type FFMPEGRemuxer struct {
	command string
}

func NewFFMPEGRemuxer(command string) *FFMPEGRemuxer {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGRemuxer{command: command}
}

func (r *FFMPEGRemuxer) Transcode(ctx context.Context, blob domain.Blob) (domain.Blob, error) {
	if blob.Size() == 0 || !isVideo(blob) {
		return blob, nil
	}

	cmd := exec.CommandContext(ctx, r.command,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-c", "copy",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(blob.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return domain.Blob{}, fmt.Errorf("ffmpeg remux failed: %w: %s", err, trimSpace(stderr.String()))
	}
	return domain.Blob{Data: out, MediaType: "video/mp4", FileName: "video.mp4"}, nil
}

// isVideo treats unlabelled blobs as video.
func isVideo(blob domain.Blob) bool {
	return blob.MediaType == "" || strings.HasPrefix(blob.MediaType, "video/")
}
