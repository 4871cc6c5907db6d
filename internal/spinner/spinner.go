package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval is the delay between frames.
const Interval = 80 * time.Millisecond

// Start redraws status() next to an animated frame on w until the returned
// function is called. stop clears the line and is safe to call twice.
func Start(w io.Writer, status func() string) (stop func()) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		ticker := time.NewTicker(Interval)
		defer ticker.Stop()

		width := 0
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
				close(cleared)
				return
			case <-ticker.C:
				line := frames[i%len(frames)] + " " + status()
				lw := runewidth.StringWidth(line)
				// Pad over the tail of a longer previous line.
				pad := max(width-lw, 0)
				fmt.Fprintf(w, "\r%s%s", line, strings.Repeat(" ", pad)) //nolint:errcheck
				width = max(width, lw)
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			close(done)
		})
		<-cleared
	}
}
