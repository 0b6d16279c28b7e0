package sequencer

import "github.com/Paree24/efflux-tracker/song"

// VoiceQueue is the per-channel FIFO of currently-sounding noteOn events.
// Kill semantics always drain from the head, so no random removal exists.
// The queue is touched only from the scheduler's execution context.
type VoiceQueue struct {
	events []*song.Event
}

// Append enqueues an event at the tail.
func (q *VoiceQueue) Append(e *song.Event) {
	q.events = append(q.events, e)
}

// HeadPeek returns the head event, or nil when the queue is empty.
func (q *VoiceQueue) HeadPeek() *song.Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// RemoveHead drops the head event.
func (q *VoiceQueue) RemoveHead() {
	if len(q.events) == 0 {
		return
	}
	q.events = q.events[1:]
}

// Flush removes all entries without emitting further commands.
func (q *VoiceQueue) Flush() {
	q.events = q.events[:0]
}

// Len returns the number of queued voices.
func (q *VoiceQueue) Len() int {
	return len(q.events)
}
