package media

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"signsync/internal/domain"
)

const maxJPEGFrame = 8 << 20

var errNoFrame = errors.New("no live frame available")

// frameFeed keeps the latest live JPEG and offers it to the preview channel.
// The channel holds one frame; a slow reader sees only the newest.
type frameFeed struct {
	mu      sync.Mutex
	latest  domain.Frame
	updated chan struct{}
	preview chan domain.Frame
	closed  bool
}

func newFrameFeed() *frameFeed {
	return &frameFeed{updated: make(chan struct{}), preview: make(chan domain.Frame, 1)}
}

func (f *frameFeed) publish(data []byte) {
	frame := domain.Frame{Data: data, MediaType: mediaTypeJPEG}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = frame
	close(f.updated)
	f.updated = make(chan struct{})

	select {
	case f.preview <- frame:
	default:
		select {
		case <-f.preview:
		default:
		}
		select {
		case f.preview <- frame:
		default:
		}
	}
}

// consume publishes every JPEG read from r until r is exhausted.
func (f *frameFeed) consume(r io.ReadCloser) {
	defer r.Close()
	_ = splitJPEG(r, f.publish)
}

// latestFrame returns the newest frame, waiting up to wait for the first one.
func (f *frameFeed) latestFrame(ctx context.Context, wait time.Duration) (domain.Frame, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.Frame{}, errSourceClosed
	}
	if len(f.latest.Data) > 0 {
		frame := f.latest
		f.mu.Unlock()
		return frame, nil
	}
	updated := f.updated
	f.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-updated:
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	case <-timer.C:
		return domain.Frame{}, errNoFrame
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.Frame{}, errSourceClosed
	}
	return f.latest, nil
}

func (f *frameFeed) frames() <-chan domain.Frame {
	return f.preview
}

func (f *frameFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.preview)
	close(f.updated)
}

// splitJPEG cuts an image2pipe MJPEG stream into frames on SOI/EOI markers.
func splitJPEG(r io.Reader, emit func([]byte)) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var frame []byte
	inFrame := false
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if !inFrame {
			if prev == 0xFF && b == 0xD8 {
				frame = []byte{0xFF, 0xD8}
				inFrame = true
				prev = 0
				continue
			}
			prev = b
			continue
		}

		frame = append(frame, b)
		switch {
		case prev == 0xFF && b == 0xD9:
			emit(frame)
			frame, inFrame, prev = nil, false, 0
		case len(frame) > maxJPEGFrame:
			frame, inFrame, prev = nil, false, 0
		default:
			prev = b
		}
	}
}
