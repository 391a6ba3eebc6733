package usecase

import (
	"bytes"
	"testing"
)

func TestRecorderPreservesChunkOrder(t *testing.T) {
	t.Parallel()

	first := bytes.Repeat([]byte{'a'}, 10)
	second := bytes.Repeat([]byte{'b'}, 20)

	r := NewRecorder()
	r.Begin()
	r.Append(first)
	r.Append(second)

	data, ok := r.Finalize()
	if !ok {
		t.Fatalf("expected finalize to succeed")
	}
	if len(data) != 30 {
		t.Fatalf("expected 30 bytes, got %d", len(data))
	}
	if !bytes.Equal(data, append(append([]byte(nil), first...), second...)) {
		t.Fatalf("chunks reassembled out of order: %q", data)
	}
}

func TestRecorderBufferEmptyAroundEachCycle(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	for i := 0; i < 5; i++ {
		if r.Buffered() != 0 {
			t.Fatalf("cycle %d: expected empty buffer before start, got %d", i, r.Buffered())
		}
		r.Begin()
		for j := 0; j <= i; j++ {
			r.Append([]byte("chunk"))
		}
		if _, ok := r.Finalize(); !ok {
			t.Fatalf("cycle %d: finalize failed", i)
		}
		if r.Buffered() != 0 || r.State() != RecorderIdle {
			t.Fatalf("cycle %d: expected empty idle recorder, got %d bytes in %s", i, r.Buffered(), r.State())
		}
	}
}

func TestRecorderDropsDataOutsideRecording(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	if r.Append([]byte("early")) {
		t.Fatalf("expected append before begin to be dropped")
	}

	r.Begin()
	r.Append([]byte("kept"))
	if _, ok := r.Finalize(); !ok {
		t.Fatalf("expected finalize to succeed")
	}

	if r.Append([]byte("late")) {
		t.Fatalf("expected append after finalize to be dropped")
	}
	if r.Buffered() != 0 {
		t.Fatalf("late chunk leaked into buffer")
	}
}

func TestRecorderDiscardsEmptyPayloads(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Begin()
	if r.Append(nil) || r.Append([]byte{}) {
		t.Fatalf("expected empty payloads to be discarded")
	}
	data, ok := r.Finalize()
	if !ok || len(data) != 0 {
		t.Fatalf("expected empty blob, got %d bytes ok=%v", len(data), ok)
	}
}

func TestRecorderFinalizeWhileIdleIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	if data, ok := r.Finalize(); ok || data != nil {
		t.Fatalf("expected no-op finalize, got %q ok=%v", data, ok)
	}

	r.Begin()
	r.Append([]byte("x"))
	r.Finalize()
	if _, ok := r.Finalize(); ok {
		t.Fatalf("expected second finalize to be a no-op")
	}
}

func TestRecorderBeginClearsResidualChunks(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Begin()
	r.Append([]byte("stale"))
	r.Begin()
	r.Append([]byte("fresh"))

	data, _ := r.Finalize()
	if string(data) != "fresh" {
		t.Fatalf("expected residual chunks to be cleared, got %q", data)
	}
}

func TestRecorderCopiesChunks(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Begin()
	buf := []byte("abc")
	r.Append(buf)
	copy(buf, "xyz")

	data, _ := r.Finalize()
	if string(data) != "abc" {
		t.Fatalf("recorder must not alias reused read buffers, got %q", data)
	}
}
