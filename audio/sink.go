package audio

import (
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/Paree24/efflux-tracker/midi"
	"github.com/Paree24/efflux-tracker/song"
)

// ccForModule maps module-parameter names onto MIDI controller numbers.
var ccForModule = map[string]uint8{
	"volume":     7,
	"pan":        10,
	"filterQ":    71,
	"filterFreq": 74,
	"delayLevel": 91,
	"delayTime":  94,
}

const defaultCC = 1 // mod wheel for unmapped modules

// glideSegments is how many interpolated CC sends a glide spreads over its
// duration.
const glideSegments = 8

// Captured is one recorded output command.
type Captured struct {
	At  float64
	Msg gomidi.Message
}

// Sink is the MIDI audio backend. The scheduler hands it commands stamped
// with audio-clock times up to the lookahead horizon; a dispatch goroutine
// holds them until due and puts them on the wire, so lookahead never turns
// into early notes. Instrument slots map 1:1 onto MIDI channels.
type Sink struct {
	out midi.Sender

	start time.Time

	mu      sync.Mutex
	pending []command
	lastCC  map[[2]uint8]uint8 // (channel, controller) -> last sent value

	capturing bool
	captured  []Captured

	wake chan struct{}
	stop chan struct{}
}

// NewSink creates a sink sending to out. out may be nil, in which case
// commands are still timed and capturable but nothing reaches a port.
func NewSink(out midi.Sender) *Sink {
	s := &Sink{
		out:    out,
		start:  time.Now(),
		lastCC: make(map[[2]uint8]uint8),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	go s.dispatchLoop()
	return s
}

// Close stops the dispatch loop. Pending commands are dropped.
func (s *Sink) Close() {
	close(s.stop)
}

// CurrentTime returns the audio clock in seconds. It is never rewound.
func (s *Sink) CurrentTime() float64 {
	return time.Since(s.start).Seconds()
}

// NoteOn schedules the start of an event on the given instrument slot.
func (s *Sink) NoteOn(e *song.Event, instrument int, at float64) {
	ch := uint8(instrument) & 0x0F

	switch e.Action {
	case song.ActionNoteOn:
		vel := e.Velocity
		if vel == 0 {
			vel = 100
		}
		s.schedule(at, gomidi.NoteOn(ch, e.Note, vel))
	case song.ActionModuleParam:
		if e.MP != nil {
			s.scheduleModuleParam(e, ch, at)
		}
	}
	// An explicit noteOff event carries no attack of its own; the voice it
	// ends is released through the scheduler's queue drain.
}

// NoteOff schedules the end of an event.
func (s *Sink) NoteOff(e *song.Event, at float64) {
	if e.Action != song.ActionNoteOn {
		// Module-parameter changes and noteOff markers have nothing left
		// to release on the wire.
		return
	}
	s.schedule(at, gomidi.NoteOff(uint8(e.Instrument)&0x0F, e.Note))
}

// scheduleModuleParam turns a module-parameter change into controller
// traffic: one send, or a stepped ramp from the last known value when the
// payload glides.
func (s *Sink) scheduleModuleParam(e *song.Event, ch uint8, at float64) {
	cc, ok := ccForModule[e.MP.Module]
	if !ok {
		cc = defaultCC
	}
	target := ccValue(e.MP.Value)

	s.mu.Lock()
	from, known := s.lastCC[[2]uint8{ch, cc}]
	s.lastCC[[2]uint8{ch, cc}] = target
	s.mu.Unlock()

	if !e.MP.Glide || !known || e.Seq.MpLength <= 0 {
		s.schedule(at, gomidi.ControlChange(ch, cc, target))
		return
	}

	for i := 1; i <= glideSegments; i++ {
		frac := float64(i) / glideSegments
		v := float64(from) + (float64(target)-float64(from))*frac
		s.schedule(at+e.Seq.MpLength*frac, gomidi.ControlChange(ch, cc, uint8(v)))
	}
}

func ccValue(percent float64) uint8 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return uint8(percent * 127 / 100)
}

// IsRecording reports whether the sink is capturing its output stream.
func (s *Sink) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// StartCapture begins recording outgoing commands into memory.
func (s *Sink) StartCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturing = true
	s.captured = nil
}

// StopCapture ends recording and returns the captured command stream.
func (s *Sink) StopCapture() []Captured {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturing = false
	out := s.captured
	s.captured = nil
	return out
}

// Silence drops every pending command and releases all sounding notes. The
// transport calls this on stop.
func (s *Sink) Silence() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	if s.out == nil {
		return
	}
	for ch := uint8(0); ch < 16; ch++ {
		s.out.Send(gomidi.ControlChange(ch, 123, 0)) // all notes off
	}
}

