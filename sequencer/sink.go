package sequencer

import "github.com/Paree24/efflux-tracker/song"

// Sink is the audio backend the scheduler dispatches commands to. Times are
// in audio-clock seconds. The sink owns its release envelopes; the scheduler
// never re-sends or cancels a command once emitted.
type Sink interface {
	// CurrentTime returns the monotonically advancing audio clock in seconds.
	CurrentTime() float64

	// NoteOn schedules the start of an event on the given instrument slot.
	NoteOn(e *song.Event, instrument int, at float64)

	// NoteOff schedules the end of an event.
	NoteOff(e *song.Event, at float64)

	// IsRecording reports whether the sink is capturing its output.
	IsRecording() bool
}

// Metronome receives one call per step while enabled and decides which steps
// audibly click.
type Metronome interface {
	Play(subdivision, step, stepPrecision int, at float64)
}

// MetronomeSubdivision is the accent pattern passed on every metronome call.
const MetronomeSubdivision = 2
