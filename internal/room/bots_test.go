package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleDemoAddsAndRemovesBots(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 8}, nil)
	s.Join("a", "Alice", false)
	s.Join("b", "Bob", false)

	require.NoError(t, s.ToggleDemo("a", true))
	assert.Equal(t, 10, len(s.participants))

	bots := 0
	for _, p := range s.participants {
		if p.IsBot() {
			bots++
		}
	}
	assert.Equal(t, 8, bots)
	assert.Equal(t, "a", s.hostID, "human host must be untouched")

	require.NoError(t, s.ToggleDemo("a", false))
	assert.Equal(t, 2, len(s.participants))
	for _, p := range s.participants {
		assert.False(t, p.IsBot(), "no bot may survive demo off")
	}
	assert.Equal(t, "a", s.hostID)
}

func TestToggleDemoTwiceIsIdempotent(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 4}, nil)
	s.Join("a", "Alice", false)

	require.NoError(t, s.ToggleDemo("a", true))
	require.NoError(t, s.ToggleDemo("a", true))
	assert.Equal(t, 5, len(s.participants), "bots join once")
}

func TestBotsSubmitDuringSubmitPhase(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 8}, nil)
	s.Join("a", "Alice", false)
	require.NoError(t, s.ToggleDemo("a", true))

	tickN(s, 2) // two seconds into the phase
	s.RunBots()

	n := len(s.submissions)
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, 3)
	seen := map[string]bool{}
	for _, sub := range s.submissions {
		assert.False(t, seen[sub.Text], "bots must not duplicate a line")
		seen[sub.Text] = true
		assert.Contains(t, botLines, sub.Text)
	}

	// same phase instance: the roster acts only once
	s.RunBots()
	assert.Equal(t, n, len(s.submissions))
}

func TestBotsVoteOnceEach(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 8}, nil)
	s.Join("a", "Alice", false)
	require.NoError(t, s.ToggleDemo("a", true))
	require.NoError(t, s.SubmitLine("a", "only line"))

	tickN(s, 30)
	require.Equal(t, PhaseVote, s.phase)
	tickN(s, 2)
	s.RunBots()

	total := 0
	for _, sub := range s.submissions {
		total += sub.Votes
	}
	assert.Equal(t, 8, total, "one vote per bot")

	s.RunBots()
	after := 0
	for _, sub := range s.submissions {
		after += sub.Votes
	}
	assert.Equal(t, total, after, "repeat run must not double-vote")
}

func TestBotsVoteSuggestions(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 8}, nil)
	s.Join("a", "Alice", false)
	require.NoError(t, s.ToggleDemo("a", true))
	require.NoError(t, s.SubmitLine("a", "only line"))
	tickN(s, 30)
	require.NoError(t, s.VoteSubmission("a", s.submissions[0].ID))
	eff := tickN(s, 15)
	require.NotNil(t, eff.Rewrite)

	// rewrite still in flight: bots wait instead of burning their turn
	tickN(s, 2)
	s.RunBots()
	require.True(t, s.ApplyRewrites(eff.Rewrite.Token, []string{"x", "y", "z"}))
	s.RunBots()

	total := 0
	for _, sug := range s.suggestions {
		total += sug.Votes
	}
	assert.Equal(t, 8, total)
}

func TestBotsAnswerProducerPoll(t *testing.T) {
	s := NewSession("r1", Config{BotCount: 8}, nil)
	s.Join("a", "Alice", false)
	require.NoError(t, s.ToggleDemo("a", true))

	require.NoError(t, s.StartQuestion("a", QuestionSpec{Label: "?", Options: []string{"x", "y"}}))
	total := 0
	for _, n := range s.question.Votes {
		total += n
	}
	assert.Equal(t, 8, total, "every bot answers the poll")
}
