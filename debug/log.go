// Package debug is the playback engine's opt-in trace log. When enabled it
// appends one line per traced action to ~/.config/efflux/debug.log, stamped
// with seconds elapsed since Enable so entries line up with the audio-clock
// times the scheduler computes.
package debug

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Trace categories, one per engine layer.
const (
	Sched = "sched" // lookahead collect/step loop and transport commands
	Clock = "clock" // tick driver start/stop
	Wire  = "wire"  // sink dispatch: commands leaving for the MIDI port
	Cmd   = "cmd"   // shell and batch command input
)

var (
	mu      sync.Mutex
	file    *os.File
	out     *bufio.Writer
	started time.Time
)

// Enable opens the trace log, truncating any previous run.
func Enable() error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(homeDir, ".config", "efflux")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	out = bufio.NewWriter(f)
	started = time.Now()

	fmt.Fprintf(out, "%10.4f %-5s engine trace started %s\n",
		0.0, "debug", started.Format(time.RFC3339))
	out.Flush()
	return nil
}

// Disable flushes and closes the trace log.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return
	}
	out.Flush()
	file.Close()
	file = nil
	out = nil
}

// Log records one traced action under the given category. A no-op until
// Enable is called, so call sites in the collect loop stay cheap.
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if out == nil {
		return
	}

	fmt.Fprintf(out, "%10.4f %-5s %s\n",
		time.Since(started).Seconds(), category, fmt.Sprintf(format, args...))
	out.Flush() // keep the tail intact even on a crash mid-pass
}
