package sequencer

import (
	"github.com/Paree24/efflux-tracker/debug"
)

// Transport commands. All of them are idempotent mutators that serialize
// against the collect loop on the scheduler lock.

// SetPlaying starts or stops the transport.
func (s *Scheduler) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPlaying(playing)
}

func (s *Scheduler) setPlaying(playing bool) {
	if playing == s.state.Playing {
		return
	}

	if playing {
		if s.state.Recording && s.state.Metronome.CountIn {
			s.state.Metronome.CountInComplete = false
			s.state.Metronome.restoreEnabled = s.state.Metronome.Enabled
			s.state.Metronome.Enabled = true
		}
		s.state.CurrentStep = 0
		s.setPosition(s.state.ActivePattern, s.currentTime())
		s.state.Playing = true
		s.clock.Start(TickInterval(s.state.ScheduleAheadTime))
		debug.Log(debug.Sched, "play pattern=%d", s.state.ActivePattern)
		return
	}

	s.state.Playing = false
	s.clock.Stop()
	// The sink silences itself on transport stop, so the queues flush
	// without emitting noteOffs. Clearing the playing flags keeps the
	// events re-armed for the next run.
	for _, q := range s.queues {
		for q.Len() > 0 {
			q.HeadPeek().Seq.Playing = false
			q.RemoveHead()
		}
	}
	debug.Log(debug.Sched, "stop")
	s.notifyUpdate()
}

// SetLooping toggles repeating the active pattern.
func (s *Scheduler) SetLooping(looping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Looping = looping
}

// SetRecording toggles recording mode.
func (s *Scheduler) SetRecording(recording bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Recording = recording
}

// SetMetronomeEnabled toggles the metronome.
func (s *Scheduler) SetMetronomeEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Metronome.Enabled = enabled
}

// SetCountIn toggles the one-bar metronome lead before recording.
func (s *Scheduler) SetCountIn(countIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Metronome.CountIn = countIn
}

// SetActivePattern jumps to the given pattern, clamped to the song.
func (s *Scheduler) SetActivePattern(pattern int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPosition(pattern, s.currentTime())
	s.notifyUpdate()
}

// SetPosition commits the position at the current audio time.
func (s *Scheduler) SetPosition(pattern int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPosition(pattern, s.currentTime())
	s.notifyUpdate()
}

// GotoPreviousPattern moves one pattern back; no-op at the first pattern.
func (s *Scheduler) GotoPreviousPattern() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ActivePattern == 0 {
		return
	}
	s.setPosition(s.state.ActivePattern-1, s.currentTime())
	s.notifyUpdate()
}

// GotoNextPattern moves one pattern forward; no-op at the last pattern.
func (s *Scheduler) GotoNextPattern() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ActivePattern >= len(s.song.Patterns)-1 {
		return
	}
	s.setPosition(s.state.ActivePattern+1, s.currentTime())
	s.notifyUpdate()
}

// SetCurrentStep moves the step cursor within the transport grid.
func (s *Scheduler) SetCurrentStep(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step < 0 {
		step = 0
	}
	if step >= s.state.StepPrecision {
		step = s.state.StepPrecision - 1
	}
	s.state.CurrentStep = step
}

// SetPatternSteps changes a pattern's step resolution, resampling its
// channels onto the new grid. Serialized with collect so a pass sees each
// channel either pre- or post-change.
func (s *Scheduler) SetPatternSteps(pattern, steps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.song.Pattern(pattern)
	if p == nil {
		return
	}
	p.SetSteps(steps)
	s.rebindChannels()
	debug.Log(debug.Sched, "pattern %d resampled to %d steps", pattern, steps)
}

// SetTempo changes the song tempo. Honored on the next step boundary.
func (s *Scheduler) SetTempo(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bpm < 20 {
		bpm = 20
	}
	if bpm > 300 {
		bpm = 300
	}
	s.song.Tempo = bpm
}

// Configuration setters, applied at wiring time. Changing them mid-playback
// takes effect on the next step boundary.

// SetStepPrecision sets the transport grid resolution.
func (s *Scheduler) SetStepPrecision(precision int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if precision <= 0 {
		return
	}
	s.state.StepPrecision = precision
	if s.state.CurrentStep >= precision {
		s.state.CurrentStep = 0
	}
}

// SetScheduleAheadTime sets the lookahead horizon in seconds.
func (s *Scheduler) SetScheduleAheadTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds <= 0 {
		return
	}
	s.state.ScheduleAheadTime = seconds
}

// SetBeatAmount sets the number of beats a pattern spans.
func (s *Scheduler) SetBeatAmount(beats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beats <= 0 {
		return
	}
	s.state.BeatAmount = beats
}

// Observations, queried by front-ends.

func (s *Scheduler) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Playing
}

func (s *Scheduler) IsLooping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Looping
}

func (s *Scheduler) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Recording
}

func (s *Scheduler) IsMetronomeEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Metronome.Enabled
}

// AmountOfSteps returns the active pattern's step resolution.
func (s *Scheduler) AmountOfSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.song.Pattern(s.state.ActivePattern); p != nil {
		return p.Steps
	}
	return 0
}

// StepPrecision returns the transport grid resolution.
func (s *Scheduler) StepPrecision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.StepPrecision
}

// Position returns the active pattern and the current transport step.
func (s *Scheduler) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Position{
		ActivePattern: s.state.ActivePattern,
		CurrentStep:   s.state.CurrentStep,
	}
}

// Tempo returns the song tempo in beats per minute.
func (s *Scheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song.Tempo
}
