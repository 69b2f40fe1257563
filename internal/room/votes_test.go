package room

import "testing"

func TestVoteLedgerIdempotency(t *testing.T) {
	var l voteLedger
	l.reset(phaseKey{PhaseVote, 1})

	if l.hasVoted("a") {
		t.Fatal("fresh ledger should be empty")
	}
	if !l.record("a") {
		t.Fatal("first record should succeed")
	}
	if l.record("a") {
		t.Fatal("second record in the same phase instance must be a no-op")
	}
	if !l.hasVoted("a") {
		t.Fatal("recorded voter should be present")
	}
	if l.hasVoted("b") {
		t.Fatal("other voters unaffected")
	}
}

func TestVoteLedgerResetClearsVoters(t *testing.T) {
	var l voteLedger
	l.reset(phaseKey{PhaseVote, 1})
	l.record("a")

	l.reset(phaseKey{PhaseAI, 1})
	if l.hasVoted("a") {
		t.Fatal("new phase instance must start clean")
	}
	if !l.record("a") {
		t.Fatal("voter may vote again in the new phase instance")
	}

	l.reset(phaseKey{PhaseVote, 2})
	if l.hasVoted("a") {
		t.Fatal("same phase in a later round is a different instance")
	}
}
