package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/Paree24/efflux-tracker/audio"
	"github.com/Paree24/efflux-tracker/commands"
	"github.com/Paree24/efflux-tracker/config"
	"github.com/Paree24/efflux-tracker/debug"
	"github.com/Paree24/efflux-tracker/midi"
	"github.com/Paree24/efflux-tracker/sequencer"
	"github.com/Paree24/efflux-tracker/song"
	"github.com/Paree24/efflux-tracker/tui"
)

// isTerminal returns true if stdin is a terminal (TTY)
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func main() {
	scriptFile := flag.String("script", "", "execute commands from file")
	shellMode := flag.Bool("shell", false, "force the line-oriented shell instead of the TUI")
	noMIDI := flag.Bool("no-midi", false, "run without a MIDI output port")
	portFlag := flag.Int("port", -1, "MIDI output port index")
	debugFlag := flag.Bool("debug", false, "write a debug log to ~/.config/efflux/debug.log")
	flag.Parse()

	if *debugFlag {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "Error enabling debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var out *midi.Output
	if !*noMIDI {
		out = openOutput(cfg, *portFlag)
	}
	if out != nil {
		defer out.Close()
	}

	// Sink works without a port; commands are still timed and capturable.
	var sender midi.Sender
	if out != nil {
		sender = out
	}
	sink := audio.NewSink(sender)
	defer sink.Close()

	metro := audio.NewMetronome(sink)

	doc := song.Demo()
	doc.Tempo = cfg.Playback.Tempo

	sched := sequencer.New(doc, sink, metro)
	applyPlaybackConfig(sched, cfg)
	go sched.Run()
	defer sched.Close()

	cleanup := func() {
		sched.SetPlaying(false)
		sink.Silence()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cleanup()
		os.Exit(0)
	}()

	handler := commands.New(sched, sink, os.Stdout)

	if *scriptFile != "" {
		f, err := os.Open(*scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script file: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()

		success, shouldExit := handler.Batch(f)
		if shouldExit {
			cleanup()
			if !success {
				os.Exit(1)
			}
			return
		}
		fmt.Println("\nScript completed. Playback continues. Press Ctrl+C to exit.")
		select {}
	}

	if !isTerminal() {
		// Piped input: batch mode
		success, shouldExit := handler.Batch(os.Stdin)
		if shouldExit {
			cleanup()
			if !success {
				os.Exit(1)
			}
			return
		}
		fmt.Println("\nBatch commands completed. Playback continues. Press Ctrl+C to exit.")
		select {}
	}

	if *shellMode {
		fmt.Println("efflux transport shell. Type 'help' for commands, 'quit' to exit.")
		if err := handler.ReadLoop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading commands: %v\n", err)
			os.Exit(1)
		}
		cleanup()
		return
	}

	m := tui.NewModel(sched, sink)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cleanup()
}

// openOutput picks a MIDI output port: flag index first, then the configured
// port name, then port 0. A missing port degrades to silent operation.
func openOutput(cfg *config.Config, portIndex int) *midi.Output {
	ports := midi.ListPorts()
	if len(ports) == 0 {
		fmt.Fprintln(os.Stderr, "No MIDI output ports found; running silent")
		return nil
	}

	if portIndex >= 0 {
		out, err := midi.Open(portIndex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening MIDI port %d: %v\n", portIndex, err)
			os.Exit(1)
		}
		return out
	}

	if cfg.MIDI.PortName != "" && cfg.MIDI.AutoConnect {
		if out, err := midi.OpenByName(cfg.MIDI.PortName); err == nil {
			fmt.Printf("Using MIDI port: %s\n", cfg.MIDI.PortName)
			return out
		}
	}

	out, err := midi.Open(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening MIDI port 0: %v\n", err)
		return nil
	}
	fmt.Printf("Using MIDI port: %s\n", ports[0])
	return out
}

func applyPlaybackConfig(sched *sequencer.Scheduler, cfg *config.Config) {
	if cfg.Playback.StepPrecision > 0 {
		sched.SetStepPrecision(cfg.Playback.StepPrecision)
	}
	if cfg.Playback.ScheduleAheadTime > 0 {
		sched.SetScheduleAheadTime(cfg.Playback.ScheduleAheadTime)
	}
	if cfg.Playback.BeatAmount > 0 {
		sched.SetBeatAmount(cfg.Playback.BeatAmount)
	}
}
