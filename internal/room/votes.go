package room

// phaseKey identifies one phase instance: the same phase in a later round is
// a different key, so ledgers reset naturally across rounds.
type phaseKey struct {
	phase Phase
	round int
}

// voteLedger tracks which participants have already voted in the current
// phase instance. A second vote in the same instance is a no-op.
type voteLedger struct {
	key    phaseKey
	voters map[string]struct{}
}

func (l *voteLedger) reset(k phaseKey) {
	l.key = k
	l.voters = make(map[string]struct{})
}

func (l *voteLedger) hasVoted(participantID string) bool {
	_, ok := l.voters[participantID]
	return ok
}

// record marks the participant as having voted. Returns false if they had
// already voted this phase instance.
func (l *voteLedger) record(participantID string) bool {
	if l.voters == nil {
		l.voters = make(map[string]struct{})
	}
	if _, ok := l.voters[participantID]; ok {
		return false
	}
	l.voters[participantID] = struct{}{}
	return true
}
