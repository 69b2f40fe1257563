package room

import (
	"time"
)

type Phase string

const (
	PhaseSubmit Phase = "submit"
	PhaseVote   Phase = "vote"
	PhaseAI     Phase = "ai"
)

type Kind string

const (
	KindHuman Kind = "human"
	KindBot   Kind = "bot"
)

type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Reputation int    `json:"reputation"`
	Kind       Kind   `json:"kind"`
}

func (p Participant) IsBot() bool { return p.Kind == KindBot }

type Submission struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	Author           string    `json:"author"`
	AuthorID         string    `json:"authorId"`
	AuthorReputation int       `json:"authorReputation"`
	Votes            int       `json:"votes"`
	CreatedAt        time.Time `json:"createdAt"`
}

type AISuggestion struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// LastWinner is the transient "this line just won" banner, cleared a few
// seconds after the round completes.
type LastWinner struct {
	Round int    `json:"round"`
	Text  string `json:"text"`
}

// Question is a live producer poll. Votes are tallied per option and the
// poll auto-resolves into an insight string once EndsAt passes.
type Question struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Label    string         `json:"label"`
	Options  []string       `json:"options"`
	Votes    map[string]int `json:"votes"`
	EndsAt   time.Time      `json:"endsAt"`
}

// QuestionSpec is what the producer sends to start a poll.
type QuestionSpec struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Options  []string `json:"options"`
}

// State is the externally visible snapshot of a room, broadcast to every
// subscriber after each mutation and each tick. Vote ledgers, pending
// rewrite tokens and bot internals never appear here.
type State struct {
	DemoMode        bool           `json:"demoMode"`
	Participants    []Participant  `json:"participants"`
	SpectatorCount  int            `json:"spectatorCount"`
	Submissions     []Submission   `json:"submissions"`
	Phase           Phase          `json:"phase"`
	TimeLeft        int            `json:"timeLeft"`
	Round           int            `json:"round"`
	Song            []string       `json:"song"`
	SongSections    []string       `json:"songSections"`
	AISuggestions   []AISuggestion `json:"aiSuggestions"`
	HostID          string         `json:"hostId"`
	Paused          bool           `json:"paused"`
	Theme           string         `json:"theme"`
	LastWinner      *LastWinner    `json:"lastWinner"`
	CurrentQuestion *Question      `json:"currentQuestion"`
	AIInsight       string         `json:"aiInsight"`
}

// Preview is the read-only lobby view of a room. Safe to poll; reading it
// never starts timers or bots.
type Preview struct {
	RoomID        string         `json:"roomId"`
	Theme         string         `json:"theme"`
	Phase         Phase          `json:"phase"`
	TimeLeft      int            `json:"timeLeft"`
	Round         int            `json:"round"`
	Participants  int            `json:"participants"`
	Spectators    int            `json:"spectators"`
	SongLines     int            `json:"songLines"`
	QuestionVotes map[string]int `json:"questionVotes"`
}

// WinnerRecord is the durable-log entry written once per completed round
// that produced a winner.
type WinnerRecord struct {
	RoomID    string    `json:"roomId"`
	Round     int       `json:"round"`
	Theme     string    `json:"theme"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RewriteRequest asks for the round leader to be remixed. Token identifies
// the round/phase instance that is allowed to apply the result.
type RewriteRequest struct {
	Line  string
	Theme string
	Token string
}

// Effects are deferred side effects produced by a state transition. They are
// executed by the registry outside the room lock so the tick never waits on
// the network or the database.
type Effects struct {
	Rewrite *RewriteRequest
	Winner  *WinnerRecord
}

// sectionFor labels song lines the way the live overlay groups them.
func sectionFor(line int) string {
	switch {
	case line == 1:
		return "Intro"
	case line%4 == 0:
		return "Chorus"
	case line%5 == 0:
		return "Bridge"
	default:
		return "Verse"
	}
}
