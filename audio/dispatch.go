package audio

import (
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/Paree24/efflux-tracker/debug"
)

// command is a single wire message with its due time on the audio clock.
type command struct {
	at  float64
	msg gomidi.Message
}

// schedule inserts a command keeping pending ordered by due time. Commands
// with equal timestamps keep their arrival order, which preserves the
// scheduler's computed legato ordering.
func (s *Sink) schedule(at float64, msg gomidi.Message) {
	s.mu.Lock()
	i := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].at > at
	})
	s.pending = append(s.pending, command{})
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = command{at: at, msg: msg}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop holds each command until its due time and sends it. New
// commands landing ahead of the one being waited on interrupt the wait via
// the wake channel.
func (s *Sink) dispatchLoop() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.stop:
				return
			case <-s.wake:
			}
			continue
		}

		next := s.pending[0]
		wait := time.Duration((next.at - s.CurrentTime()) * float64(time.Second))
		if wait > 0 {
			s.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-s.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		s.pending = s.pending[1:]
		if s.capturing {
			s.captured = append(s.captured, Captured{At: next.at, Msg: next.msg})
		}
		s.mu.Unlock()

		if s.out != nil {
			s.out.Send(next.msg)
			debug.Log(debug.Wire, "at=%.4f msg=% X", next.at, next.msg.Bytes())
		}
	}
}
