package sequencer

import (
	"sync"

	"github.com/Paree24/efflux-tracker/debug"
	"github.com/Paree24/efflux-tracker/song"
)

// Scheduler translates the song's musical time into a stream of precisely
// timed noteOn / noteOff / module-parameter commands dispatched to the Sink.
// It owns the transport state and one voice queue per instrument slot; every
// mutation happens under its lock, so collect passes and transport commands
// serialize onto a single logical execution context. The clock goroutine only
// posts ticks and never touches shared state.
type Scheduler struct {
	mu sync.Mutex

	song  *song.Song
	state TransportState

	// channels is rebound to the active pattern's channels on every
	// position commit.
	channels []song.Channel

	queues []*VoiceQueue

	sink  Sink
	metro Metronome
	clock *Clock

	stopRun chan struct{}

	// UpdateChan receives a (coalesced) notification whenever the position
	// advances, for front-ends that want to redraw.
	UpdateChan chan struct{}
}

// New creates a scheduler for the given song. sink may be nil in headless
// uses; the audio clock then reads as zero. metro may be nil to disable
// metronome output entirely.
func New(s *song.Song, sink Sink, metro Metronome) *Scheduler {
	sch := &Scheduler{
		song:       s,
		state:      newTransportState(),
		queues:     make([]*VoiceQueue, song.InstrumentAmount),
		sink:       sink,
		metro:      metro,
		clock:      NewClock(),
		stopRun:    make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	for i := range sch.queues {
		sch.queues[i] = &VoiceQueue{}
	}
	sch.rebindChannels()
	return sch
}

// Run drains clock ticks until Close is called. Call it in its own goroutine.
func (s *Scheduler) Run() {
	for {
		select {
		case <-s.stopRun:
			return
		case <-s.clock.Ticks():
			s.Tick()
		}
	}
}

// Close stops the clock and the run loop.
func (s *Scheduler) Close() {
	s.clock.Stop()
	close(s.stopRun)
}

// Tick is the tick-handler entrypoint. A tick arriving while the transport
// is stopped is ignored.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Playing {
		return
	}
	s.collect()
	s.notifyUpdate()
}

// Song returns the song the scheduler plays.
func (s *Scheduler) Song() *song.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song
}

// collect is the lookahead loop: schedule everything due before the horizon,
// advancing the cursor one subdivision at a time.
func (s *Scheduler) collect() {
	now := s.currentTime()
	horizon := now + s.state.ScheduleAheadTime

	for s.state.Playing && s.state.NextNoteTime < horizon {
		// During a recording count-in the metronome and step advancement
		// run, but no events fire.
		countingIn := s.state.Recording && s.state.Metronome.CountIn && !s.state.Metronome.CountInComplete
		if !countingIn {
			s.collectAt(s.state.NextNoteTime)
		}
		if s.state.Metronome.Enabled && s.metro != nil {
			s.metro.Play(MetronomeSubdivision, s.state.CurrentStep, s.state.StepPrecision, s.state.NextNoteTime)
		}
		s.step()
	}
}

// collectAt rescans the active pattern for events in trigger range at the
// given cursor time. Rescanning instead of indexing keeps live edits safe
// and doubles as the single place stale playing flags get cleared.
func (s *Scheduler) collectAt(t float64) {
	compareTime := t - s.state.MeasureStartTime

	for channelIndex, channel := range s.channels {
		for _, e := range channel {
			if e == nil || e.Recording || e.Seq.StartMeasure != s.state.ActivePattern {
				continue
			}
			inRange := compareTime >= e.Seq.StartMeasureOffset &&
				compareTime < e.Seq.StartMeasureOffset+e.Seq.Length
			if !inRange {
				// Re-arm so the event can trigger again on the next pass
				// through its range.
				e.Seq.Playing = false
				continue
			}
			if !e.Seq.Playing {
				s.enqueue(e, channelIndex)
			}
		}
	}
}

// enqueue dispatches an event to the sink and maintains per-channel
// monophony: any still-sounding voices in the lane are drained head-first at
// the same timestamp the new note starts, which the sink renders as legato.
func (s *Scheduler) enqueue(e *song.Event, channelIndex int) {
	e.Seq.Playing = true
	e.Seq.MpLength = s.mpLength()

	t := s.state.NextNoteTime
	s.sinkNoteOn(e, e.Instrument, t)

	isNoteOn := e.Action == song.ActionNoteOn
	if e.Action != song.ActionModuleParam && channelIndex < len(s.queues) {
		q := s.queues[channelIndex]
		for q.Len() > 0 {
			s.dequeue(q.HeadPeek(), t)
			q.RemoveHead()
		}
	}

	if isNoteOn {
		if channelIndex < len(s.queues) {
			s.queues[channelIndex].Append(e)
		}
		return
	}
	// noteOffs and module-parameter changes are self-terminating after one
	// step's worth of time and never occupy the voice queue.
	s.sinkNoteOff(e, t+e.Seq.MpLength)
}

// dequeue ends a voice. The sink owns the release envelope; the playing flag
// is cleared by range exit or reposition, not here.
func (s *Scheduler) dequeue(e *song.Event, t float64) {
	s.sinkNoteOff(e, t)
}

// mpLength is one step's worth of seconds in the active pattern.
func (s *Scheduler) mpLength() float64 {
	p := s.song.Pattern(s.state.ActivePattern)
	if p == nil || p.Steps == 0 {
		return 0
	}
	patternDuration := (60 / s.song.Tempo) * float64(s.state.BeatAmount)
	return patternDuration / float64(p.Steps)
}

// step advances the cursor one subdivision and handles the end-of-pattern
// transitions: wrap, loop, record-stop and count-in completion.
func (s *Scheduler) step() {
	subdivision := ((60 / s.song.Tempo) * 4) / float64(s.state.StepPrecision)
	s.state.NextNoteTime += subdivision
	s.state.CurrentStep++

	if s.state.CurrentStep != s.state.StepPrecision {
		return
	}
	s.state.CurrentStep = 0

	nextPattern := s.state.ActivePattern + 1
	maxPattern := len(s.song.Patterns) - 1

	if nextPattern > maxPattern {
		s.state.ActivePattern = 0
		if s.sink != nil && s.sink.IsRecording() && !s.state.Looping {
			debug.Log(debug.Sched, "output capture complete, stopping")
			s.setPlaying(false)
			return
		}
	} else if !s.state.Looping {
		s.state.ActivePattern = nextPattern
	}

	s.setPosition(s.state.ActivePattern, s.state.NextNoteTime)

	if s.state.Recording && s.state.Metronome.CountIn && !s.state.Metronome.CountInComplete {
		s.state.Metronome.CountInComplete = true
		s.state.Metronome.Enabled = s.state.Metronome.restoreEnabled
		s.state.FirstMeasureStartTime = s.currentTime()
		// Recording proper starts at the song top.
		s.state.ActivePattern = 0
		s.rebindChannels()
		debug.Log(debug.Sched, "count-in complete")
	}
}

// setPosition commits the musical position. currentTime is an audio-clock
// timestamp; callers without one pass the clock's current reading.
func (s *Scheduler) setPosition(pattern int, currentTime float64) {
	if max := len(s.song.Patterns) - 1; pattern > max {
		pattern = max
	}
	if pattern < 0 {
		pattern = 0
	}
	if pattern != s.state.ActivePattern {
		s.state.CurrentStep = 0
	}

	s.state.ActivePattern = pattern
	s.state.NextNoteTime = currentTime
	s.state.MeasureStartTime = currentTime
	s.state.FirstMeasureStartTime = currentTime - float64(pattern)*(60/s.song.Tempo*float64(s.state.BeatAmount))
	s.rebindChannels()

	if pattern == 0 {
		// Jumping to the song start must never leave stuck notes behind.
		for _, q := range s.queues {
			for q.Len() > 0 {
				e := q.HeadPeek()
				s.sinkNoteOff(e, currentTime)
				e.Seq.Playing = false
				q.RemoveHead()
			}
		}
	}
}

// rebindChannels points the scan at the active pattern's channels. An
// out-of-range pattern reads as no events.
func (s *Scheduler) rebindChannels() {
	if p := s.song.Pattern(s.state.ActivePattern); p != nil {
		s.channels = p.Channels
		return
	}
	s.channels = nil
}

func (s *Scheduler) currentTime() float64 {
	if s.sink == nil {
		return 0
	}
	return s.sink.CurrentTime()
}

func (s *Scheduler) sinkNoteOn(e *song.Event, instrument int, at float64) {
	if s.sink != nil {
		s.sink.NoteOn(e, instrument, at)
	}
}

func (s *Scheduler) sinkNoteOff(e *song.Event, at float64) {
	if s.sink != nil {
		s.sink.NoteOff(e, at)
	}
}

func (s *Scheduler) notifyUpdate() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}
