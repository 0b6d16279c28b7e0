package song

import clone "github.com/huandu/go-clone/generic"

// Clone returns a deep copy of the song. Editors use this for snapshots;
// the copy shares no events with the original, so mutating one side's seq
// records never leaks into the other.
func (s *Song) Clone() *Song {
	return clone.Clone(s)
}

// Clone returns a deep copy of a single pattern.
func (p *Pattern) Clone() *Pattern {
	return clone.Clone(p)
}
