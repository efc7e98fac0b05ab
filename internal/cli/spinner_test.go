package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func TestSpinnerBasic(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Testing...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if out.Len() == 0 {
		t.Error("spinner drew nothing")
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after Stop, want false")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinner(ctx, io.Discard, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinner(ctx, io.Discard, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), io.Discard, "Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithMessages(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)

	s := newSpinner(context.Background(), io.Discard, "Testing success...")
	s.Start()
	s.StopWithSuccess(p, "Done!")

	s = newSpinner(context.Background(), io.Discard, "Testing error...")
	s.Start()
	s.StopWithError(p, "Failed!")

	for _, want := range []string{"Done!", "Failed!"} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Errorf("output %q missing %q", out.String(), want)
		}
	}
}
