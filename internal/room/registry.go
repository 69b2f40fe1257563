package room

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Rewriter produces up to three rewritten variants of a lyric line. It owns
// its own deadline and never returns an error: degraded upstreams resolve to
// a deterministic fallback.
type Rewriter interface {
	Rewrite(ctx context.Context, line, theme string) []string
}

// WinnerSink records one durable row per completed round with a winner.
// Failures are logged, never surfaced to the live flow.
type WinnerSink interface {
	Append(rec WinnerRecord) error
}

// Registry owns the roomId -> Session map and each room's 1 Hz ticker.
// Rooms are created lazily on first reference and never error on an unknown
// id. Each room serializes its own mutations; rooms never block one another.
type Registry struct {
	cfg      Config
	rewriter Rewriter
	winners  WinnerSink

	mu      sync.RWMutex
	rooms   map[string]*roomEntry
	publish func(roomID string, state State)
}

type roomEntry struct {
	sess *Session
	stop chan struct{}
}

func NewRegistry(cfg Config, rw Rewriter, winners WinnerSink) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		rewriter: rw,
		winners:  winners,
		rooms:    make(map[string]*roomEntry),
	}
}

// SetPublisher wires the broadcast fanout. Must be called before the first
// room event arrives.
func (r *Registry) SetPublisher(fn func(roomID string, state State)) {
	r.publish = fn
}

// GetOrCreate returns the room's session, creating it with defaults on
// first reference. Creation alone starts no timers, so the preview API can
// poll freely.
func (r *Registry) GetOrCreate(roomID string) *Session {
	r.mu.RLock()
	e := r.rooms[roomID]
	r.mu.RUnlock()
	if e != nil {
		return e.sess
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.rooms[roomID]; e != nil {
		return e.sess
	}
	var sess *Session
	sess = NewSession(roomID, r.cfg, func() {
		if r.publish != nil {
			r.publish(roomID, sess.Snapshot())
		}
	})
	r.rooms[roomID] = &roomEntry{sess: sess}
	log.Info().Str("room", roomID).Msg("room created")
	return sess
}

func (r *Registry) entry(roomID string) *roomEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// Join adds a connection to the room and, for participants, makes sure the
// room's ticker is running.
func (r *Registry) Join(roomID, connID, name string, spectator bool) *Session {
	sess := r.GetOrCreate(roomID)
	sess.Join(connID, name, spectator)
	if !spectator {
		r.startTicker(roomID)
	}
	return sess
}

// Leave removes a connection and tears the ticker down once the room has no
// participants left. The session itself stays, so previews keep answering
// with last-known state.
func (r *Registry) Leave(roomID, connID string) {
	e := r.entry(roomID)
	if e == nil {
		return
	}
	e.sess.Leave(connID)
	if e.sess.ParticipantCount() == 0 {
		r.stopTicker(roomID)
	}
}

func (r *Registry) startTicker(roomID string) {
	r.mu.Lock()
	e := r.rooms[roomID]
	if e == nil || e.stop != nil {
		r.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	e.stop = stop
	r.mu.Unlock()

	go r.run(e.sess, stop)
	log.Debug().Str("room", roomID).Msg("room ticker started")
}

func (r *Registry) stopTicker(roomID string) {
	r.mu.Lock()
	e := r.rooms[roomID]
	if e == nil || e.stop == nil {
		r.mu.Unlock()
		return
	}
	close(e.stop)
	e.stop = nil
	r.mu.Unlock()
	log.Debug().Str("room", roomID).Msg("room ticker stopped")
}

func (r *Registry) run(sess *Session, stop chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			eff := sess.Tick()
			r.Dispatch(sess, eff)
			sess.RunBots()
		}
	}
}

// Dispatch executes a transition's deferred side effects on detached
// goroutines. The rewrite result is applied back only if its token still
// matches; the winner write is best-effort.
func (r *Registry) Dispatch(sess *Session, eff Effects) {
	if eff.Rewrite != nil && r.rewriter != nil {
		req := eff.Rewrite
		go func() {
			lines := r.rewriter.Rewrite(context.Background(), req.Line, req.Theme)
			if !sess.ApplyRewrites(req.Token, lines) {
				log.Debug().Str("room", sess.ID).Msg("stale rewrite result discarded")
			}
		}()
	}
	if eff.Winner != nil && r.winners != nil {
		rec := *eff.Winner
		go func() {
			if err := r.winners.Append(rec); err != nil {
				log.Error().Err(err).Str("room", rec.RoomID).Int("round", rec.Round).Msg("winner log write failed")
			}
		}()
	}
}
