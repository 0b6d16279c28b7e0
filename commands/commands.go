package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Paree24/efflux-tracker/audio"
	"github.com/Paree24/efflux-tracker/debug"
	"github.com/Paree24/efflux-tracker/midi"
	"github.com/Paree24/efflux-tracker/sequencer"
)

// Handler parses and executes transport commands. Every transport command
// maps onto one of the scheduler's inbound command methods, so the shell and
// any other front-end stay behaviorally identical; capture and ports act on
// the audio sink and the MIDI layer instead.
type Handler struct {
	sched *sequencer.Scheduler
	sink  *audio.Sink
	out   io.Writer
}

// New creates a command handler writing feedback to out.
func New(sched *sequencer.Scheduler, sink *audio.Sink, out io.Writer) *Handler {
	return &Handler{sched: sched, sink: sink, out: out}
}

// ProcessCommand executes a single command line.
func (h *Handler) ProcessCommand(line string) error {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return nil
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	debug.Log(debug.Cmd, "%s", strings.Join(fields, " "))

	switch cmd {
	case "play", "start":
		h.sched.SetPlaying(true)

	case "stop":
		h.sched.SetPlaying(false)
		if h.sink != nil {
			h.sink.Silence()
		}

	case "loop":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("loop: %w", err)
		}
		h.sched.SetLooping(on)

	case "rec", "record":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		h.sched.SetRecording(on)

	case "metro", "metronome":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("metronome: %w", err)
		}
		h.sched.SetMetronomeEnabled(on)

	case "countin":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("countin: %w", err)
		}
		h.sched.SetCountIn(on)

	case "goto":
		n, err := intArg(args, "pattern number")
		if err != nil {
			return fmt.Errorf("goto: %w", err)
		}
		h.sched.SetActivePattern(n - 1)

	case "next":
		h.sched.GotoNextPattern()

	case "prev":
		h.sched.GotoPreviousPattern()

	case "rewind":
		h.sched.SetPosition(0)

	case "step":
		n, err := intArg(args, "step number")
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		h.sched.SetCurrentStep(n)

	case "steps":
		if len(args) != 2 {
			return fmt.Errorf("steps: expected pattern number and step count")
		}
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("steps: invalid pattern number %q", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("steps: invalid step count %q", args[1])
		}
		h.sched.SetPatternSteps(p-1, n)

	case "tempo":
		if len(args) != 1 {
			return fmt.Errorf("tempo: expected a BPM value")
		}
		bpm, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("tempo: invalid BPM %q", args[0])
		}
		h.sched.SetTempo(bpm)

	case "capture":
		if h.sink == nil {
			return fmt.Errorf("capture: no audio sink")
		}
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		if on {
			h.sink.StartCapture()
		} else {
			captured := h.sink.StopCapture()
			fmt.Fprintf(h.out, "captured %d commands\n", len(captured))
		}

	case "ports":
		for i, name := range midi.ListPorts() {
			fmt.Fprintf(h.out, "  %d: %s\n", i, name)
		}

	case "status", "pos":
		h.printStatus()

	case "help":
		h.printHelp()

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}

func (h *Handler) printStatus() {
	pos := h.sched.Position()
	fmt.Fprintf(h.out, "playing=%v looping=%v recording=%v metronome=%v\n",
		h.sched.IsPlaying(), h.sched.IsLooping(), h.sched.IsRecording(), h.sched.IsMetronomeEnabled())
	fmt.Fprintf(h.out, "pattern %d step %d (%d steps, %.0f bpm)\n",
		pos.ActivePattern+1, pos.CurrentStep, h.sched.AmountOfSteps(), h.sched.Tempo())
}

func (h *Handler) printHelp() {
	fmt.Fprint(h.out, `Commands:
  play | stop          start / stop the transport
  loop on|off          repeat the active pattern
  rec on|off           recording mode
  metro on|off         metronome
  countin on|off       one-bar metronome lead before recording
  goto N               jump to pattern N (1-based)
  next | prev          pattern navigation
  rewind               jump to the song start
  step N               move the step cursor
  steps P N            set pattern P to N steps
  tempo BPM            set the tempo
  capture on|off       record the outgoing command stream
  ports                list MIDI output ports
  status               show the transport state
  quit                 exit
`)
}

func onOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("expected 'on' or 'off'")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected 'on' or 'off', got %q", args[0])
}

func intArg(args []string, what string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a %s", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}
