package cli

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a stderr progress indicator whose message can be swapped while
// it runs, so a long enrichment can report fetch progress as it happens.
type Spinner struct {
	mu      sync.Mutex
	message string
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// newSpinner creates a spinner showing the given initial message.
func newSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation on stderr.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				s.mu.Lock()
				msg := s.message
				s.mu.Unlock()
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(os.Stderr, "\r\033[K%s %s", styleIconSpinner.Render(frame), StyleDim.Render(msg))
			}
		}
	}()
}

// SetMessage swaps the text shown next to the spinner. Safe to call from
// any goroutine while the spinner runs.
func (s *Spinner) SetMessage(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Stopping twice is safe.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.quit) })
	<-s.stopped
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}
