package song

// Event actions. A step slot either holds an event or is nil.
const (
	ActionModuleParam = 0
	ActionNoteOn      = 1
	ActionNoteOff     = 2
)

// InstrumentAmount is the number of instrument slots, and therefore the
// number of channel lanes every pattern carries.
const InstrumentAmount = 8

// ModuleParam is the payload of a module-parameter-change event. Value is
// expressed as a percentage (0-100) of the target module's range.
type ModuleParam struct {
	Module string  `json:"module"`
	Value  float64 `json:"value"`
	Glide  bool    `json:"glide"`
}

// Seq is the scheduler-owned sub-record of an event. The position fields are
// set when the event is created; at runtime the playback scheduler writes
// MpLength and Playing.
type Seq struct {
	StartMeasure       int     `json:"startMeasure"`
	StartMeasureOffset float64 `json:"startMeasureOffset"`
	Length             float64 `json:"length"`
	MpLength           float64 `json:"mpLength"`
	Playing            bool    `json:"-"` // runtime only
}

// Event is a single entry in a step slot.
type Event struct {
	Action     int          `json:"action"`
	Instrument int          `json:"instrument"`
	Note       uint8        `json:"note"`
	Velocity   uint8        `json:"velocity"`
	MP         *ModuleParam `json:"mp,omitempty"`
	Seq        Seq          `json:"seq"`
	Recording  bool         `json:"-"` // true while the key that created it is still held
}

// Channel is one monophonic lane: an ordered sequence of step slots, one per
// step of the owning pattern's resolution. A nil slot is empty.
type Channel []*Event

// Pattern is a fixed-length musical bar subdivided into Steps slots per
// channel.
type Pattern struct {
	Steps    int       `json:"steps"`
	Channels []Channel `json:"channels"`
}

// Song is the read-only (to the scheduler) top-level document.
type Song struct {
	Tempo    float64    `json:"tempo"`
	Patterns []*Pattern `json:"patterns"`
}

// NewPattern creates an empty pattern with the given step resolution and one
// channel per instrument slot.
func NewPattern(steps int) *Pattern {
	if steps <= 0 {
		steps = 16
	}
	p := &Pattern{
		Steps:    steps,
		Channels: make([]Channel, InstrumentAmount),
	}
	for i := range p.Channels {
		p.Channels[i] = make(Channel, steps)
	}
	return p
}

// New creates a song with the given tempo and a single empty pattern.
func New(tempo float64) *Song {
	if tempo <= 0 {
		tempo = 120
	}
	return &Song{
		Tempo:    tempo,
		Patterns: []*Pattern{NewPattern(16)},
	}
}

// Pattern returns the pattern at index, or nil when out of range. The
// scheduler treats a missing pattern as "no events".
func (s *Song) Pattern(index int) *Pattern {
	if index < 0 || index >= len(s.Patterns) {
		return nil
	}
	return s.Patterns[index]
}

// NewNoteOn creates a noteOn event positioned inside a pattern. offset and
// length are in seconds relative to the pattern start.
func NewNoteOn(instrument int, note uint8, velocity uint8, measure int, offset, length float64) *Event {
	return &Event{
		Action:     ActionNoteOn,
		Instrument: instrument,
		Note:       note,
		Velocity:   velocity,
		Seq: Seq{
			StartMeasure:       measure,
			StartMeasureOffset: offset,
			Length:             length,
		},
	}
}

// NewNoteOff creates a noteOff event positioned inside a pattern.
func NewNoteOff(instrument int, measure int, offset, length float64) *Event {
	return &Event{
		Action:     ActionNoteOff,
		Instrument: instrument,
		Seq: Seq{
			StartMeasure:       measure,
			StartMeasureOffset: offset,
			Length:             length,
		},
	}
}

// NewModuleParam creates a module-parameter-change event.
func NewModuleParam(instrument int, mp ModuleParam, measure int, offset, length float64) *Event {
	return &Event{
		Action:     ActionModuleParam,
		Instrument: instrument,
		MP:         &mp,
		Seq: Seq{
			StartMeasure:       measure,
			StartMeasureOffset: offset,
			Length:             length,
		},
	}
}

// StepDuration returns the length of one step slot of the given pattern in
// seconds, for a whole pattern spanning beatAmount beats.
func (s *Song) StepDuration(p *Pattern, beatAmount int) float64 {
	if p == nil || p.Steps == 0 {
		return 0
	}
	return (60 / s.Tempo) * float64(beatAmount) / float64(p.Steps)
}

// Demo builds a small two-pattern demo song so the player is usable out of
// the box: a bass line on channel 0, an offbeat lead on channel 1 and a
// filter sweep on the second pattern.
func Demo() *Song {
	s := New(120)
	s.Patterns = []*Pattern{NewPattern(16), NewPattern(16)}

	step := s.StepDuration(s.Patterns[0], 4)

	bass := []struct {
		slot int
		note uint8
	}{
		{0, 36}, {4, 36}, {7, 39}, {8, 36}, {12, 43}, {14, 41},
	}
	for _, n := range bass {
		for m := 0; m < 2; m++ {
			e := NewNoteOn(0, n.note, 110, m, float64(n.slot)*step, step)
			s.Patterns[m].Channels[0][n.slot] = e
		}
	}

	lead := []struct {
		slot int
		note uint8
	}{
		{2, 60}, {6, 63}, {10, 67}, {13, 72},
	}
	for _, n := range lead {
		e := NewNoteOn(1, n.note, 90, 1, float64(n.slot)*step, step)
		s.Patterns[1].Channels[1][n.slot] = e
	}

	sweep := NewModuleParam(1, ModuleParam{Module: "filterFreq", Value: 80, Glide: true}, 1, 8*step, step)
	s.Patterns[1].Channels[1][8] = sweep

	return s
}
