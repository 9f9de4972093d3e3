package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner provides rotating visual feedback while a lookup runs
type Spinner struct {
	mu       sync.Mutex
	out      io.Writer
	message  string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	running  bool
}

// NewSpinner creates a spinner drawing on out
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{out: out, message: message, interval: 100 * time.Millisecond}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin(s.stop, s.done)
}

// Stop terminates the animation, clears the line and waits for the
// drawing goroutine to exit
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	fmt.Fprint(s.out, "\r\033[K")
}

func (s *Spinner) spin(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(s.out, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
