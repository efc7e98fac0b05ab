package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a progress indicator that stops on Stop or when its context
// is cancelled.
type Spinner struct {
	w       io.Writer
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	mu       sync.Mutex
	explicit bool
}

// newSpinner creates a spinner drawing message to w until ctx is done.
func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), styleDim.Render(s.message))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the animation and clears the line. Later calls are no-ops.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.stoppedByCaller()
		<-s.stopped
	})
}

// stoppedByCaller marks the stop as requested rather than cancelled.
func (s *Spinner) stoppedByCaller() {
	s.mu.Lock()
	s.explicit = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// StopWithSuccess stops the spinner and prints a success line to out.
func (s *Spinner) StopWithSuccess(out printer, message string) {
	s.Stop()
	out.success("%s", message)
}

// StopWithError stops the spinner and prints an error line to out.
func (s *Spinner) StopWithError(out printer, message string) {
	s.Stop()
	out.error("%s", message)
}

// Cancelled reports whether the parent context ended the spinner.
func (s *Spinner) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.explicit && s.ctx.Err() != nil
}
