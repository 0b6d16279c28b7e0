package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// ReadLoop runs the interactive transport shell until EOF or quit.
func (h *Handler) ReadLoop() error {
	rl, err := readline.New("efflux> ")
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isQuit(line) {
			return nil
		}

		if err := h.ProcessCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// Batch reads and executes commands from reader, echoing them for progress
// feedback. Returns (success, shouldExit): success is false if any command
// errored, shouldExit reports an explicit quit command.
func (h *Handler) Batch(reader io.Reader) (bool, bool) {
	scanner := bufio.NewScanner(reader)
	hadErrors := false
	shouldExit := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		// Print comments for user visibility
		if strings.HasPrefix(line, "#") {
			fmt.Fprintln(h.out, line)
			continue
		}
		if isQuit(line) {
			shouldExit = true
			continue
		}

		fmt.Fprintln(h.out, ">", line)
		if err := h.ProcessCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			hadErrors = true
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return false, shouldExit
	}
	return !hadErrors, shouldExit
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true
	}
	return false
}
