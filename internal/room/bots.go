package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var botNames = []string{
	"Ava", "Noah", "Mia", "Liam", "Zoe", "Ethan", "Ivy", "Kai",
	"Nova", "Aria", "Jay", "Leo",
}

var botLines = []string{
	"We're chasing lights in a quiet city",
	"I hear your name in the midnight rain",
	"This love feels warm, then turns to smoke",
	"Heartbeat bass under neon skies",
	"I'm learning peace, one breath at a time",
	"Your silence says what words can't",
	"We fall apart, but still we sing",
	"Hold my hand, the night is long",
}

// botSimulator drives the demo-mode roster. Bots act through the same
// public session entry points as real participants, so every phase check
// and vote ledger applies to them unchanged.
type botSimulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	bots  []Participant
	acted phaseKey
}

func newBotSimulator(roomID string, count int) *botSimulator {
	if count > len(botNames) {
		count = len(botNames)
	}
	b := &botSimulator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for i := 0; i < count; i++ {
		b.bots = append(b.bots, Participant{
			ID:   fmt.Sprintf("bot_%s_%d", roomID, i),
			Name: botNames[i] + " (bot)",
			Kind: KindBot,
		})
	}
	return b
}

func (b *botSimulator) roster() []Participant {
	return append([]Participant(nil), b.bots...)
}

func (b *botSimulator) resetCadence() {
	b.mu.Lock()
	b.acted = phaseKey{}
	b.mu.Unlock()
}

// markActed records that the roster has taken its turn for this phase
// instance. Returns false if it already had.
func (b *botSimulator) markActed(key phaseKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acted == key {
		return false
	}
	b.acted = key
	return true
}

func (b *botSimulator) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}

// RunBots gives the demo roster its turn, a couple of seconds into each
// phase. Called by the room ticker after the tick itself; never while the
// session lock is held.
func (s *Session) RunBots() {
	s.mu.Lock()
	if !s.demoMode || s.paused || len(s.bots.bots) == 0 {
		s.mu.Unlock()
		return
	}
	key := phaseKey{s.phase, s.round}
	var dur int
	switch s.phase {
	case PhaseSubmit:
		dur = s.cfg.SubmitSeconds
	case PhaseVote:
		dur = s.cfg.VoteSeconds
	case PhaseAI:
		dur = s.cfg.AISeconds
	}
	if s.timeLeft > dur-2 {
		s.mu.Unlock()
		return
	}
	phase := s.phase

	existing := make(map[string]bool, len(s.submissions))
	var topIDs []string
	for i, sub := range s.submissions {
		existing[sub.Text] = true
		if i < 3 {
			topIDs = append(topIDs, sub.ID)
		}
	}
	var sugIDs []string
	for _, sug := range s.suggestions {
		sugIDs = append(sugIDs, sug.ID)
	}
	s.mu.Unlock()

	if phase == PhaseAI && len(sugIDs) == 0 {
		// rewrite still in flight; try again next tick
		return
	}
	if !s.bots.markActed(key) {
		return
	}

	switch phase {
	case PhaseSubmit:
		s.bots.submitLines(s, existing)
	case PhaseVote:
		s.bots.voteSubmissions(s, topIDs)
	case PhaseAI:
		s.bots.voteSuggestions(s, sugIDs)
	}
}

// submitLines adds two or three canned lines, skipping text already present.
func (b *botSimulator) submitLines(s *Session, existing map[string]bool) {
	count := 2 + b.intn(2)
	for i := 0; i < count; i++ {
		bot := b.bots[b.intn(len(b.bots))]
		line := botLines[b.intn(len(botLines))]
		if existing[line] {
			continue
		}
		if err := s.SubmitLine(bot.ID, line); err == nil {
			existing[line] = true
		}
	}
}

// voteSubmissions has each bot cast one vote, weighted toward the current
// leaders by only ever picking from the top three.
func (b *botSimulator) voteSubmissions(s *Session, top []string) {
	if len(top) == 0 {
		return
	}
	for _, bot := range b.bots {
		_ = s.VoteSubmission(bot.ID, top[b.intn(len(top))])
	}
}

func (b *botSimulator) voteSuggestions(s *Session, ids []string) {
	if len(ids) == 0 {
		return
	}
	for _, bot := range b.bots {
		_ = s.VoteSuggestion(bot.ID, ids[b.intn(len(ids))])
	}
}

// votePoll has every bot answer a freshly started producer poll.
func (b *botSimulator) votePoll(s *Session, options []string) {
	if len(options) == 0 {
		return
	}
	for _, bot := range b.bots {
		_ = s.VoteOption(bot.ID, options[b.intn(len(options))])
	}
}
