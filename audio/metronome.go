package audio

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// GM percussion voices for the click, on the drum channel.
const (
	metronomeChannel = 9
	accentNote       = 76 // high woodblock
	clickNote        = 77 // low woodblock
)

// Metronome renders transport clicks through a Sink. It receives one call
// per step and clicks on beat boundaries (every stepPrecision/4 steps),
// accenting the first beat of each stepPrecision/subdivision span.
type Metronome struct {
	sink *Sink
}

// NewMetronome creates a metronome playing through the given sink.
func NewMetronome(sink *Sink) *Metronome {
	return &Metronome{sink: sink}
}

// Play is invoked by the scheduler for every step while the metronome is
// enabled. subdivision sets the accent period: with subdivision 2 every half
// measure opens with an accented click.
func (m *Metronome) Play(subdivision, step, stepPrecision int, at float64) {
	stepsPerBeat := stepPrecision / 4
	if stepsPerBeat <= 0 || step%stepsPerBeat != 0 {
		return
	}

	note := uint8(clickNote)
	velocity := uint8(80)
	if subdivision > 0 && step%(stepPrecision/subdivision) == 0 {
		note = accentNote
		velocity = 120
	}

	m.sink.schedule(at, gomidi.NoteOn(metronomeChannel, note, velocity))
	m.sink.schedule(at+0.05, gomidi.NoteOff(metronomeChannel, note))
}
