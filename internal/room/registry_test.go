package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRewriter struct {
	lines []string
}

func (r *stubRewriter) Rewrite(ctx context.Context, line, theme string) []string {
	return r.lines
}

type memorySink struct {
	mu   sync.Mutex
	recs []WinnerRecord
}

func (m *memorySink) Append(rec WinnerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	reg := NewRegistry(Config{}, nil, nil)

	s1 := reg.GetOrCreate("r1")
	s2 := reg.GetOrCreate("r1")
	require.Same(t, s1, s2, "same id must resolve to the same session")

	other := reg.GetOrCreate("r2")
	require.NotSame(t, s1, other)

	// creation alone must not start the ticker
	e := reg.entry("r1")
	require.NotNil(t, e)
	assert.Nil(t, e.stop, "preview-style access must not start timers")
}

func TestJoinStartsAndLeaveStopsTicker(t *testing.T) {
	reg := NewRegistry(Config{}, nil, nil)

	reg.Join("r1", "a", "Alice", false)
	e := reg.entry("r1")
	require.NotNil(t, e.stop, "participant join starts the ticker")

	// spectators alone do not keep a room ticking
	reg.Join("r1", "w", "Watcher", true)
	reg.Leave("r1", "a")
	assert.Nil(t, reg.entry("r1").stop, "empty participant list stops the ticker")

	// the session survives for previews
	p := reg.GetOrCreate("r1").Preview()
	assert.Equal(t, 1, p.Spectators)

	// rejoin restarts it
	reg.Join("r1", "b", "Bob", false)
	assert.NotNil(t, reg.entry("r1").stop)
	reg.Leave("r1", "b")
}

func TestSpectatorJoinDoesNotStartTicker(t *testing.T) {
	reg := NewRegistry(Config{}, nil, nil)
	reg.Join("r1", "w", "Watcher", true)
	assert.Nil(t, reg.entry("r1").stop)
}

func TestDispatchAppliesRewriteAndPersistsWinner(t *testing.T) {
	sink := &memorySink{}
	reg := NewRegistry(Config{}, &stubRewriter{lines: []string{"alpha", "beta", "gamma"}}, sink)

	sess := reg.GetOrCreate("r1")
	sess.Join("a", "Alice", false)
	require.NoError(t, sess.SubmitLine("a", "line one"))
	tickN(sess, 30)
	require.NoError(t, sess.VoteSubmission("a", sess.submissions[0].ID))
	eff := tickN(sess, 15)
	require.NotNil(t, eff.Rewrite)

	reg.Dispatch(sess, eff)
	require.Eventually(t, func() bool {
		return len(sess.Snapshot().AISuggestions) == 3
	}, time.Second, 5*time.Millisecond, "rewrite result should be applied")

	eff = tickN(sess, 10)
	require.NotNil(t, eff.Winner)
	reg.Dispatch(sess, eff)
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRoomsProgressIndependently(t *testing.T) {
	reg := NewRegistry(Config{}, nil, nil)
	s1 := reg.GetOrCreate("r1")
	s2 := reg.GetOrCreate("r2")
	s1.Join("a", "Alice", false)
	s2.Join("b", "Bob", false)

	tickN(s1, 30)
	assert.Equal(t, PhaseVote, s1.Snapshot().Phase)
	assert.Equal(t, PhaseSubmit, s2.Snapshot().Phase, "other rooms must be unaffected")
}

func TestPublisherReceivesSnapshots(t *testing.T) {
	reg := NewRegistry(Config{}, nil, nil)
	var mu sync.Mutex
	got := map[string]int{}
	reg.SetPublisher(func(roomID string, state State) {
		mu.Lock()
		got[roomID]++
		mu.Unlock()
	})

	sess := reg.GetOrCreate("r1")
	sess.Join("a", "Alice", false)
	sess.Tick()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, got["r1"], 2, "join and tick both broadcast")
}
