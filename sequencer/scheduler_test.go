package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paree24/efflux-tracker/song"
)

// fakeSink records every command the scheduler emits and exposes a
// hand-cranked audio clock.
type fakeSink struct {
	now       float64
	recording bool
	calls     []sinkCall
}

type sinkCall struct {
	kind       string // "on" or "off"
	event      *song.Event
	instrument int
	at         float64
}

func (f *fakeSink) CurrentTime() float64 { return f.now }
func (f *fakeSink) IsRecording() bool    { return f.recording }

func (f *fakeSink) NoteOn(e *song.Event, instrument int, at float64) {
	f.calls = append(f.calls, sinkCall{kind: "on", event: e, instrument: instrument, at: at})
}

func (f *fakeSink) NoteOff(e *song.Event, at float64) {
	f.calls = append(f.calls, sinkCall{kind: "off", event: e, at: at})
}

func (f *fakeSink) ons() []sinkCall  { return f.filter("on") }
func (f *fakeSink) offs() []sinkCall { return f.filter("off") }

func (f *fakeSink) filter(kind string) []sinkCall {
	var out []sinkCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// testStep is the step duration at 120 BPM with precision 16.
const testStep = 0.125

// newTestScheduler builds a playing scheduler over a single 16-step pattern
// at 120 BPM with the transport grid matching the pattern resolution, and
// the cursor seeded at audio time zero.
func newTestScheduler(t *testing.T, doc *song.Song) (*Scheduler, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	s := New(doc, sink, nil)
	s.SetStepPrecision(16)
	s.state.Playing = true
	s.setPosition(0, 0)
	return s, sink
}

func songWithOnePattern() *song.Song {
	doc := song.New(120)
	return doc
}

// collectNow runs one lookahead pass at the given audio time.
func collectNow(s *Scheduler, sink *fakeSink, now float64) {
	sink.now = now
	s.mu.Lock()
	s.collect()
	s.mu.Unlock()
}

func TestLoneNoteOnAtStepZero(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, 2*testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)

	ons := sink.ons()
	require.Len(t, ons, 1)
	assert.Same(t, e, ons[0].event)
	assert.Equal(t, 0.0, ons[0].at)
	assert.True(t, e.Seq.Playing)
	assert.Empty(t, sink.offs())

	// A second pass inside the same range must not retrigger.
	collectNow(s, sink, 0.05)
	assert.Len(t, sink.ons(), 1)
}

func TestSecondNoteOnKillsFirst(t *testing.T) {
	doc := songWithOnePattern()
	e0 := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	e1 := song.NewNoteOn(0, 50, 100, 0, 4*testStep, testStep)
	doc.Patterns[0].Channels[0][0] = e0
	doc.Patterns[0].Channels[0][4] = e1

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)
	collectNow(s, sink, 0.5)

	ons := sink.ons()
	require.Len(t, ons, 2)
	assert.Same(t, e1, ons[1].event)
	assert.Equal(t, 0.5, ons[1].at)

	offs := sink.offs()
	require.Len(t, offs, 1)
	assert.Same(t, e0, offs[0].event)
	assert.Equal(t, 0.5, offs[0].at)

	// The new noteOn is computed before the drain, so the release of the
	// old voice lands after it in call order but at the same timestamp.
	assert.Greater(t, indexOf(sink.calls, offs[0]), indexOf(sink.calls, ons[1]))

	q := s.queues[0]
	require.Equal(t, 1, q.Len())
	assert.Same(t, e1, q.HeadPeek())
}

func indexOf(calls []sinkCall, want sinkCall) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}

func TestModuleParamIsSelfTerminating(t *testing.T) {
	doc := songWithOnePattern()
	e0 := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	emp := song.NewModuleParam(0, song.ModuleParam{Module: "filterFreq", Value: 50}, 0, 2*testStep, testStep)
	doc.Patterns[0].Channels[0][0] = e0
	doc.Patterns[0].Channels[0][2] = emp

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0.25)

	require.Len(t, sink.ons(), 2)
	offs := sink.offs()
	require.Len(t, offs, 1)
	assert.Same(t, emp, offs[0].event)
	assert.InDelta(t, 0.25+testStep, offs[0].at, 1e-9)
	assert.InDelta(t, testStep, emp.Seq.MpLength, 1e-9)

	// No kill: the sounding voice stays queued.
	require.Equal(t, 1, s.queues[0].Len())
	assert.Same(t, e0, s.queues[0].HeadPeek())
}

func TestNoteOffEventDrainsWithoutQueueing(t *testing.T) {
	doc := songWithOnePattern()
	e0 := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	eOff := song.NewNoteOff(0, 0, 4*testStep, testStep)
	doc.Patterns[0].Channels[0][0] = e0
	doc.Patterns[0].Channels[0][4] = eOff

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0.5)

	offs := sink.offs()
	// e0 killed by the drain, plus the noteOff event's own self-termination.
	require.Len(t, offs, 2)
	assert.Same(t, e0, offs[0].event)
	assert.Same(t, eOff, offs[1].event)
	assert.Equal(t, 0, s.queues[0].Len())
}

func TestLoopRetriggersAfterRangeExit(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	s.SetLooping(true)

	collectNow(s, sink, 0)
	// Drain one full pattern: 16 steps of 0.125s = 2.0s.
	collectNow(s, sink, 2.0)

	assert.Equal(t, 0, s.Position().ActivePattern)

	ons := sink.ons()
	require.Len(t, ons, 2)
	assert.Same(t, e, ons[0].event)
	assert.Same(t, e, ons[1].event)
	assert.Equal(t, 0.0, ons[0].at)
	assert.InDelta(t, 2.0, ons[1].at, 1e-9)
}

func TestStopFlushesQueuesSilently(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)
	require.Equal(t, 1, s.queues[0].Len())

	offsBefore := len(sink.offs())
	s.SetPlaying(false)

	assert.False(t, s.IsPlaying())
	for _, q := range s.queues {
		assert.Equal(t, 0, q.Len())
	}
	assert.Len(t, sink.offs(), offsBefore)
	assert.False(t, e.Seq.Playing)
}

func TestRepositionToSongStartFlushesWithNoteOffs(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)
	require.Equal(t, 1, s.queues[0].Len())

	sink.now = 0.3
	s.SetPosition(0)

	offs := sink.offs()
	require.Len(t, offs, 1)
	assert.Same(t, e, offs[0].event)
	assert.Equal(t, 0.3, offs[0].at)
	assert.False(t, e.Seq.Playing)
	assert.Equal(t, 0, s.queues[0].Len())
}

func TestRecordingEventsAreSkipped(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	e.Recording = true
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)

	assert.Empty(t, sink.ons())
	assert.False(t, e.Seq.Playing)
}

func TestForeignMeasureEventsAreSkipped(t *testing.T) {
	doc := songWithOnePattern()
	doc.Patterns = append(doc.Patterns, song.NewPattern(16))
	// Event sits in pattern 0's channel but belongs to measure 1.
	e := song.NewNoteOn(0, 48, 100, 1, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 0)

	assert.Empty(t, sink.ons())
}

func TestPatternAdvanceWithoutLooping(t *testing.T) {
	doc := songWithOnePattern()
	doc.Patterns = append(doc.Patterns, song.NewPattern(16))

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 2.0)

	pos := s.Position()
	assert.Equal(t, 1, pos.ActivePattern)
}

func TestSongEndWrapsToPatternZero(t *testing.T) {
	doc := songWithOnePattern() // one pattern, not looping

	s, sink := newTestScheduler(t, doc)
	collectNow(s, sink, 2.0)

	assert.Equal(t, 0, s.Position().ActivePattern)
	assert.True(t, s.IsPlaying())
}

func TestOutputCaptureStopsAtSongEnd(t *testing.T) {
	doc := songWithOnePattern()

	s, sink := newTestScheduler(t, doc)
	sink.recording = true
	collectNow(s, sink, 2.0)

	assert.False(t, s.IsPlaying())
}

func TestOutputCaptureKeepsPlayingWhenLooping(t *testing.T) {
	doc := songWithOnePattern()

	s, sink := newTestScheduler(t, doc)
	sink.recording = true
	s.SetLooping(true)
	collectNow(s, sink, 2.0)

	assert.True(t, s.IsPlaying())
}

func TestCountInSuppressesEventsThenForcesPatternZero(t *testing.T) {
	doc := songWithOnePattern()
	doc.Patterns = append(doc.Patterns, song.NewPattern(16))
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	sink := &fakeSink{}
	s := New(doc, sink, nil)
	s.SetStepPrecision(16)
	s.SetRecording(true)
	s.SetCountIn(true)
	s.SetMetronomeEnabled(false)

	s.SetPlaying(true)
	defer s.Close()

	assert.True(t, s.IsMetronomeEnabled(), "count-in forces the metronome on")

	// Most of the count-in bar passes without any event firing.
	collectNow(s, sink, 1.5)
	assert.Empty(t, sink.ons())

	// Scheduling across the bar completes the count-in: metronome restored,
	// pattern forced to the song start, events fire from there.
	collectNow(s, sink, 2.0)
	assert.False(t, s.IsMetronomeEnabled())
	assert.Equal(t, 0, s.Position().ActivePattern)

	ons := sink.ons()
	require.NotEmpty(t, ons)
	assert.InDelta(t, 2.0, ons[0].at, 1e-9)

	s.SetPlaying(false)
}

func TestSubdivisionAdvancesOneWholeNote(t *testing.T) {
	doc := song.New(120)
	s, _ := newTestScheduler(t, doc)
	s.state.StepPrecision = 16

	start := s.state.NextNoteTime
	for i := 0; i < 16; i++ {
		s.step()
	}
	// One whole note at 120 BPM is two seconds.
	assert.InDelta(t, 2.0, s.state.NextNoteTime-start, 1e-9)
}

func TestTempoChangeTakesEffectNextStep(t *testing.T) {
	doc := song.New(120)
	s, _ := newTestScheduler(t, doc)

	s.step()
	first := s.state.NextNoteTime
	s.SetTempo(60)
	s.step()

	assert.InDelta(t, testStep, first, 1e-9)
	assert.InDelta(t, first+2*testStep, s.state.NextNoteTime, 1e-9)
}

func TestMissingPatternPlaysNoEvents(t *testing.T) {
	doc := songWithOnePattern()
	e := song.NewNoteOn(0, 48, 100, 0, 0, testStep)
	doc.Patterns[0].Channels[0][0] = e

	s, sink := newTestScheduler(t, doc)
	// External mutation leaves the active pattern out of range.
	s.state.ActivePattern = 5
	s.channels = nil

	collectNow(s, sink, 0)
	assert.Empty(t, sink.ons())
}

func TestSetPositionWithoutSinkDefaultsToZero(t *testing.T) {
	doc := songWithOnePattern()
	s := New(doc, nil, nil)
	s.SetPosition(0)

	assert.Equal(t, 0.0, s.state.NextNoteTime)
	assert.Equal(t, 0.0, s.state.MeasureStartTime)
}

func TestMetronomeTicksDuringPlayback(t *testing.T) {
	doc := songWithOnePattern()
	sink := &fakeSink{}
	metro := &fakeMetronome{}
	s := New(doc, sink, metro)
	s.SetStepPrecision(16)
	s.SetMetronomeEnabled(true)
	s.state.Playing = true
	s.setPosition(0, 0)

	collectNow(s, sink, 0)

	require.NotEmpty(t, metro.plays)
	assert.Equal(t, MetronomeSubdivision, metro.plays[0].subdivision)
	assert.Equal(t, 0, metro.plays[0].step)
	assert.Equal(t, 16, metro.plays[0].stepPrecision)
}

type fakeMetronome struct {
	plays []metroPlay
}

type metroPlay struct {
	subdivision, step, stepPrecision int
	at                               float64
}

func (m *fakeMetronome) Play(subdivision, step, stepPrecision int, at float64) {
	m.plays = append(m.plays, metroPlay{subdivision, step, stepPrecision, at})
}
