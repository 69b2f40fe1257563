package room

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotHost      = errors.New("not host")
	ErrInvalidPhase = errors.New("invalid phase for action")
	ErrAlreadyVoted = errors.New("already voted")
	ErrNotInRoom    = errors.New("not a participant")
	ErrSpectator    = errors.New("spectators cannot do this")
	ErrEmptyText    = errors.New("empty text")
	ErrNotFound     = errors.New("target not found")
	ErrNoLeader     = errors.New("no leading submission")
	ErrNoQuestion   = errors.New("no active question")
)

const maxLineLen = 200
const maxThemeLen = 50

// Config carries the tunables of a room. Zero values fall back to the
// defaults the live show runs with.
type Config struct {
	SubmitSeconds  int
	VoteSeconds    int
	AISeconds      int
	BotCount       int
	DefaultTheme   string
	QuestionWindow time.Duration
	WinnerClear    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SubmitSeconds <= 0 {
		c.SubmitSeconds = 30
	}
	if c.VoteSeconds <= 0 {
		c.VoteSeconds = 15
	}
	if c.AISeconds <= 0 {
		c.AISeconds = 10
	}
	if c.BotCount <= 0 {
		c.BotCount = 8
	}
	if c.DefaultTheme == "" {
		c.DefaultTheme = "lofi heartbreak"
	}
	if c.QuestionWindow <= 0 {
		c.QuestionWindow = 8 * time.Second
	}
	if c.WinnerClear <= 0 {
		c.WinnerClear = 6 * time.Second
	}
	return c
}

// Session is the state machine for one room. Every method takes the session
// lock for the duration of its own mutation only; nothing holds the lock
// across a network call or the publish fanout.
type Session struct {
	ID  string
	cfg Config

	mu           sync.Mutex
	participants []*Participant
	spectators   map[string]struct{}
	submissions  []*Submission
	song         []string
	phase        Phase
	timeLeft     int
	round        int
	hostID       string
	paused       bool
	theme        string
	demoMode     bool
	suggestions  []*AISuggestion
	pendingToken string
	lastWinner   *LastWinner
	question     *Question
	aiInsight    string

	votes   voteLedger
	aiVotes voteLedger
	bots    *botSimulator

	// publish pushes the current snapshot to subscribers. Never invoked
	// while the session lock is held.
	publish func()
}

func NewSession(id string, cfg Config, publish func()) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		ID:         id,
		cfg:        cfg,
		spectators: make(map[string]struct{}),
		phase:      PhaseSubmit,
		timeLeft:   cfg.SubmitSeconds,
		round:      1,
		theme:      cfg.DefaultTheme,
		publish:    publish,
	}
	s.votes.reset(phaseKey{PhaseSubmit, 1})
	s.aiVotes.reset(phaseKey{PhaseSubmit, 1})
	s.bots = newBotSimulator(id, cfg.BotCount)
	return s
}

func (s *Session) broadcast() {
	if s.publish != nil {
		s.publish()
	}
}

// Join adds a connection to the room. Participants get gameplay rights and
// may become host; spectators only watch. Joining twice is a no-op.
func (s *Session) Join(connID, name string, spectator bool) {
	s.mu.Lock()
	if spectator {
		s.spectators[connID] = struct{}{}
	} else {
		s.joinParticipantLocked(connID, name, KindHuman)
	}
	s.mu.Unlock()
	s.broadcast()
}

func (s *Session) joinParticipantLocked(id, name string, kind Kind) {
	for _, p := range s.participants {
		if p.ID == id {
			return
		}
	}
	if name == "" {
		name = "Anonymous"
	}
	s.participants = append(s.participants, &Participant{ID: id, Name: name, Kind: kind})
	if s.hostID == "" {
		s.hostID = id
	}
}

// Leave removes a connection. The host role falls to the earliest remaining
// participant by join order, or to nobody if the room empties.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	delete(s.spectators, connID)
	for i, p := range s.participants {
		if p.ID == connID {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
	if s.hostID == connID {
		s.hostID = ""
		if len(s.participants) > 0 {
			s.hostID = s.participants[0].ID
		}
	}
	s.mu.Unlock()
	s.broadcast()
}

func (s *Session) participantLocked(id string) *Participant {
	for _, p := range s.participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SubmitLine enters a lyric line into the current round. Only participants,
// only during the submit phase, only non-blank text.
func (s *Session) SubmitLine(connID, text string) error {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxLineLen {
		text = string(r[:maxLineLen])
	}

	s.mu.Lock()
	if err := s.submitLineLocked(connID, text); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

func (s *Session) submitLineLocked(connID, text string) error {
	if s.phase != PhaseSubmit {
		return ErrInvalidPhase
	}
	if _, ok := s.spectators[connID]; ok {
		return ErrSpectator
	}
	author := s.participantLocked(connID)
	if author == nil {
		return ErrNotInRoom
	}
	if text == "" {
		return ErrEmptyText
	}
	s.submissions = append(s.submissions, &Submission{
		ID:               uuid.NewString(),
		Text:             text,
		Author:           author.Name,
		AuthorID:         author.ID,
		AuthorReputation: author.Reputation,
		CreatedAt:        time.Now().UTC(),
	})
	return nil
}

// VoteSubmission counts one vote for a submission during the vote phase.
// The ledger guarantees at most one counted vote per participant per phase.
func (s *Session) VoteSubmission(connID, submissionID string) error {
	s.mu.Lock()
	if err := s.voteSubmissionLocked(connID, submissionID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

func (s *Session) voteSubmissionLocked(connID, submissionID string) error {
	if s.phase != PhaseVote {
		return ErrInvalidPhase
	}
	if _, ok := s.spectators[connID]; ok {
		return ErrSpectator
	}
	if s.participantLocked(connID) == nil {
		return ErrNotInRoom
	}
	if s.votes.hasVoted(connID) {
		return ErrAlreadyVoted
	}
	var target *Submission
	for _, sub := range s.submissions {
		if sub.ID == submissionID {
			target = sub
			break
		}
	}
	if target == nil {
		return ErrNotFound
	}
	target.Votes++
	s.votes.record(connID)
	s.sortSubmissionsLocked()
	return nil
}

// VoteSuggestion counts one vote for an AI suggestion during the ai phase.
func (s *Session) VoteSuggestion(connID, suggestionID string) error {
	s.mu.Lock()
	if err := s.voteSuggestionLocked(connID, suggestionID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

func (s *Session) voteSuggestionLocked(connID, suggestionID string) error {
	if s.phase != PhaseAI {
		return ErrInvalidPhase
	}
	if _, ok := s.spectators[connID]; ok {
		return ErrSpectator
	}
	if s.participantLocked(connID) == nil {
		return ErrNotInRoom
	}
	if s.aiVotes.hasVoted(connID) {
		return ErrAlreadyVoted
	}
	for _, sug := range s.suggestions {
		if sug.ID == suggestionID {
			sug.Votes++
			s.aiVotes.record(connID)
			return nil
		}
	}
	return ErrNotFound
}

// sortSubmissionsLocked orders submissions by votes plus the author's
// reputation snapshot, descending. The sort is stable over insertion order,
// so earlier createdAt wins ties.
func (s *Session) sortSubmissionsLocked() {
	sort.SliceStable(s.submissions, func(i, j int) bool {
		a, b := s.submissions[i], s.submissions[j]
		return a.Votes+a.AuthorReputation > b.Votes+b.AuthorReputation
	})
}

// TogglePause flips the room's pause state. Host only.
func (s *Session) TogglePause(connID string) error {
	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return ErrNotHost
	}
	s.paused = !s.paused
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// SetTheme changes the room theme. Host only; trimmed, capped, and replaced
// by the default when empty.
func (s *Session) SetTheme(connID, theme string) error {
	theme = strings.TrimSpace(theme)
	if r := []rune(theme); len(r) > maxThemeLen {
		theme = string(r[:maxThemeLen])
	}

	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return ErrNotHost
	}
	if theme == "" {
		theme = s.cfg.DefaultTheme
	}
	s.theme = theme
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// Reset returns the room to round one with an empty song. Membership, the
// host, the theme and demo mode are preserved.
func (s *Session) Reset(connID string) error {
	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return ErrNotHost
	}
	s.phase = PhaseSubmit
	s.timeLeft = s.cfg.SubmitSeconds
	s.round = 1
	s.song = nil
	s.submissions = nil
	s.suggestions = nil
	s.lastWinner = nil
	s.pendingToken = ""
	s.question = nil
	s.aiInsight = ""
	s.votes.reset(phaseKey{PhaseSubmit, 1})
	s.aiVotes.reset(phaseKey{PhaseSubmit, 1})
	s.bots.resetCadence()
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// ToggleDemo turns the bot roster on or off. Bots join and leave through the
// same participant bookkeeping as real users; turning demo off removes
// exactly the bot-tagged entries.
func (s *Session) ToggleDemo(connID string, on bool) error {
	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return ErrNotHost
	}
	s.demoMode = on
	if on {
		for _, b := range s.bots.roster() {
			s.joinParticipantLocked(b.ID, b.Name, KindBot)
		}
	} else {
		kept := s.participants[:0]
		for _, p := range s.participants {
			if !p.IsBot() {
				kept = append(kept, p)
			}
		}
		s.participants = kept
		if s.hostID != "" && s.participantLocked(s.hostID) == nil {
			s.hostID = ""
			if len(s.participants) > 0 {
				s.hostID = s.participants[0].ID
			}
		}
	}
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// StartQuestion opens a live producer poll that auto-resolves after the
// configured window. Host only.
func (s *Session) StartQuestion(connID string, spec QuestionSpec) error {
	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return ErrNotHost
	}
	if len(spec.Options) == 0 {
		s.mu.Unlock()
		return ErrEmptyText
	}
	q := &Question{
		ID:       uuid.NewString(),
		Category: spec.Category,
		Label:    spec.Label,
		Options:  spec.Options,
		Votes:    make(map[string]int, len(spec.Options)),
		EndsAt:   time.Now().Add(s.cfg.QuestionWindow),
	}
	for _, opt := range spec.Options {
		q.Votes[opt] = 0
	}
	s.question = q
	s.aiInsight = ""
	demo := s.demoMode
	bots := s.bots
	s.mu.Unlock()

	if demo {
		bots.votePoll(s, spec.Options)
	}
	s.broadcast()
	return nil
}

// VoteOption records a poll vote. Spectators are allowed; polls are not
// deduplicated.
func (s *Session) VoteOption(connID, option string) error {
	s.mu.Lock()
	if s.question == nil {
		s.mu.Unlock()
		return ErrNoQuestion
	}
	if _, ok := s.question.Votes[option]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.question.Votes[option]++
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// ForceRewrite lets the host kick off a rewrite for the current leader
// without waiting for the vote timer. The returned effects carry the token
// guard exactly like the timer-driven path.
func (s *Session) ForceRewrite(connID string) (Effects, error) {
	s.mu.Lock()
	if s.hostID != connID {
		s.mu.Unlock()
		return Effects{}, ErrNotHost
	}
	if len(s.submissions) == 0 {
		s.mu.Unlock()
		return Effects{}, ErrNoLeader
	}
	s.sortSubmissionsLocked()
	leader := s.submissions[0]
	token := uuid.NewString()
	s.pendingToken = token
	theme := s.theme
	s.mu.Unlock()
	return Effects{Rewrite: &RewriteRequest{Line: leader.Text, Theme: theme, Token: token}}, nil
}

// Tick advances the room by one second. While paused it only broadcasts, so
// clients see host changes immediately without the clock moving.
func (s *Session) Tick() Effects {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		s.broadcast()
		return Effects{}
	}
	s.timeLeft--
	s.resolveQuestionLocked(time.Now())
	var eff Effects
	if s.timeLeft <= 0 {
		eff = s.advanceLocked()
	}
	s.mu.Unlock()
	s.broadcast()
	return eff
}

func (s *Session) resolveQuestionLocked(now time.Time) {
	q := s.question
	if q == nil || now.Before(q.EndsAt) {
		return
	}
	total := 0
	for _, n := range q.Votes {
		total += n
	}
	if total > 0 {
		top, best := "", -1
		for _, opt := range q.Options {
			if q.Votes[opt] > best {
				top, best = opt, q.Votes[opt]
			}
		}
		percent := int(math.Round(float64(best) / float64(total) * 100))
		s.aiInsight = fmt.Sprintf("%d%% prefer %s. Suggest committing this choice.", percent, top)
	} else {
		s.aiInsight = "No strong preference detected yet. Try adjusting the question or timing."
	}
	s.question = nil
}

// advanceLocked performs the current phase's exit actions and enters the
// next phase. Called with timeLeft at zero.
func (s *Session) advanceLocked() Effects {
	switch s.phase {
	case PhaseSubmit:
		s.sortSubmissionsLocked()
		s.phase = PhaseVote
		s.timeLeft = s.cfg.VoteSeconds
		s.votes.reset(phaseKey{PhaseVote, s.round})
		return Effects{}

	case PhaseVote:
		s.suggestions = nil
		s.aiVotes.reset(phaseKey{PhaseAI, s.round})
		s.phase = PhaseAI
		s.timeLeft = s.cfg.AISeconds
		s.pendingToken = ""
		if len(s.submissions) == 0 {
			// no leader: the ai phase still runs, with nothing to vote on
			return Effects{}
		}
		leader := s.submissions[0]
		token := uuid.NewString()
		s.pendingToken = token
		return Effects{Rewrite: &RewriteRequest{Line: leader.Text, Theme: s.theme, Token: token}}

	case PhaseAI:
		eff := Effects{}
		if winner := s.pickSuggestionLocked(); winner != nil {
			s.song = append(s.song, winner.Text)
			round := s.round
			s.lastWinner = &LastWinner{Round: round, Text: winner.Text}
			s.scheduleWinnerClear(round)
			eff.Winner = &WinnerRecord{
				RoomID:    s.ID,
				Round:     round,
				Theme:     s.theme,
				Text:      winner.Text,
				CreatedAt: time.Now().UTC(),
			}
		}
		s.round++
		s.phase = PhaseSubmit
		s.timeLeft = s.cfg.SubmitSeconds
		s.submissions = nil
		s.suggestions = nil
		s.pendingToken = ""
		s.votes.reset(phaseKey{PhaseSubmit, s.round})
		s.aiVotes.reset(phaseKey{PhaseSubmit, s.round})
		return eff
	}
	return Effects{}
}

// pickSuggestionLocked returns the suggestion with the most votes, first
// inserted winning ties, or nil when the ai phase had nothing to vote on.
func (s *Session) pickSuggestionLocked() *AISuggestion {
	var winner *AISuggestion
	for _, sug := range s.suggestions {
		if winner == nil || sug.Votes > winner.Votes {
			winner = sug
		}
	}
	return winner
}

// scheduleWinnerClear drops the winner banner after a fixed delay. The check
// against the captured round keeps a slow clear for an old round from
// erasing a newer banner.
func (s *Session) scheduleWinnerClear(round int) {
	time.AfterFunc(s.cfg.WinnerClear, func() {
		s.mu.Lock()
		cleared := s.lastWinner != nil && s.lastWinner.Round == round
		if cleared {
			s.lastWinner = nil
		}
		s.mu.Unlock()
		if cleared {
			s.broadcast()
		}
	})
}

// ApplyRewrites installs the rewrite result if the token still matches the
// in-flight request. Stale results are discarded without touching anything.
// Reports whether the result was applied.
func (s *Session) ApplyRewrites(token string, lines []string) bool {
	s.mu.Lock()
	if token == "" || token != s.pendingToken {
		s.mu.Unlock()
		return false
	}
	s.pendingToken = ""
	s.suggestions = nil
	for _, line := range lines {
		if len(s.suggestions) == 3 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.suggestions = append(s.suggestions, &AISuggestion{ID: uuid.NewString(), Text: line})
	}
	s.mu.Unlock()
	s.broadcast()
	return true
}

// Snapshot builds the canonical externally visible view of the room.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		DemoMode:       s.demoMode,
		Participants:   make([]Participant, 0, len(s.participants)),
		SpectatorCount: len(s.spectators),
		Submissions:    make([]Submission, 0, len(s.submissions)),
		Phase:          s.phase,
		TimeLeft:       s.timeLeft,
		Round:          s.round,
		Song:           append([]string(nil), s.song...),
		AISuggestions:  make([]AISuggestion, 0, len(s.suggestions)),
		HostID:         s.hostID,
		Paused:         s.paused,
		Theme:          s.theme,
		AIInsight:      s.aiInsight,
	}
	for _, p := range s.participants {
		st.Participants = append(st.Participants, *p)
	}
	for _, sub := range s.submissions {
		st.Submissions = append(st.Submissions, *sub)
	}
	for _, sug := range s.suggestions {
		st.AISuggestions = append(st.AISuggestions, *sug)
	}
	st.SongSections = make([]string, len(st.Song))
	for i := range st.Song {
		st.SongSections[i] = sectionFor(i + 1)
	}
	if s.lastWinner != nil {
		lw := *s.lastWinner
		st.LastWinner = &lw
	}
	if s.question != nil {
		q := *s.question
		q.Options = append([]string(nil), s.question.Options...)
		q.Votes = make(map[string]int, len(s.question.Votes))
		for k, v := range s.question.Votes {
			q.Votes[k] = v
		}
		st.CurrentQuestion = &q
	}
	return st
}

// Preview is the lobby view: cheap, side-effect free.
func (s *Session) Preview() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Preview{
		RoomID:       s.ID,
		Theme:        s.theme,
		Phase:        s.phase,
		TimeLeft:     s.timeLeft,
		Round:        s.round,
		Participants: len(s.participants),
		Spectators:   len(s.spectators),
		SongLines:    len(s.song),
	}
	if s.question != nil {
		p.QuestionVotes = make(map[string]int, len(s.question.Votes))
		for k, v := range s.question.Votes {
			p.QuestionVotes[k] = v
		}
	}
	return p
}

func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}
