// Package ws is the realtime gateway: it routes inbound socket.io events to
// the owning room session and fans the room snapshot out to subscribers.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/mayuriWagh2002/crowd-music-mvp/internal/room"
)

// ConnCtx is the per-connection state. The socket id doubles as the opaque
// participant id; there is no further identity.
type ConnCtx struct {
	RoomID string
	Name   string
	Role   string // "participant" | "spectator"
}

type Gateway struct {
	reg *room.Registry
	io  *socketio.Server

	mu        sync.Mutex
	reactions map[string]map[string]int // roomId -> emoji -> count
}

func New(reg *room.Registry) *Gateway {
	return &Gateway{reg: reg, reactions: make(map[string]map[string]int)}
}

// Publish delivers a room snapshot to every connection subscribed to that
// room. Wired into the registry so every mutation and tick lands here.
func (g *Gateway) Publish(roomID string, state room.State) {
	if g.io != nil {
		g.io.BroadcastToRoom("/", roomID, "room_state", state)
	}
}

// Mount attaches the socket.io server with all room event handlers to the
// given gin engine and starts serving.
func (g *Gateway) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	g.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "join_room", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Name   string `json:"name"`
		Role   string `json:"role"`
	}) {
		role := "participant"
		if payload.Role == "spectator" {
			role = "spectator"
		}
		s.SetContext(&ConnCtx{RoomID: payload.RoomID, Name: payload.Name, Role: role})
		s.Join(payload.RoomID)
		g.reg.Join(payload.RoomID, s.ID(), payload.Name, role == "spectator")
		log.Info().Str("sid", s.ID()).Str("room", payload.RoomID).Str("role", role).Msg("join_room")
	})

	io.OnEvent("/", "submit_line", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Text   string `json:"text"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.SubmitLine(s.ID(), payload.Text); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("submit_line ignored")
		}
	})

	io.OnEvent("/", "vote", func(s socketio.Conn, payload struct {
		RoomID       string `json:"roomId"`
		SubmissionID string `json:"submissionId"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.VoteSubmission(s.ID(), payload.SubmissionID); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("vote ignored")
		}
	})

	io.OnEvent("/", "vote_ai", func(s socketio.Conn, payload struct {
		RoomID       string `json:"roomId"`
		SuggestionID string `json:"suggestionId"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.VoteSuggestion(s.ID(), payload.SuggestionID); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("vote_ai ignored")
		}
	})

	io.OnEvent("/", "host_pause_toggle", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.TogglePause(s.ID()); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("host_pause_toggle ignored")
		}
	})

	io.OnEvent("/", "host_set_theme", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Theme  string `json:"theme"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.SetTheme(s.ID(), payload.Theme); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("host_set_theme ignored")
		}
	})

	io.OnEvent("/", "host_reset_room", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.Reset(s.ID()); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("host_reset_room ignored")
			return
		}
		log.Info().Str("room", payload.RoomID).Msg("room reset by host")
	})

	io.OnEvent("/", "host_toggle_demo", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		On     bool   `json:"on"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.ToggleDemo(s.ID(), payload.On); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("host_toggle_demo ignored")
			return
		}
		log.Info().Str("room", payload.RoomID).Bool("on", payload.On).Msg("demo mode toggled")
	})

	io.OnEvent("/", "host_force_ai", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		eff, err := sess.ForceRewrite(s.ID())
		if err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("host_force_ai ignored")
			return
		}
		g.reg.Dispatch(sess, eff)
	})

	io.OnEvent("/", "producer_start_question", func(s socketio.Conn, payload struct {
		RoomID   string            `json:"roomId"`
		Question room.QuestionSpec `json:"question"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.StartQuestion(s.ID(), payload.Question); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("producer_start_question ignored")
		}
	})

	io.OnEvent("/", "vote_option", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Option string `json:"option"`
	}) {
		sess := g.reg.GetOrCreate(payload.RoomID)
		if err := sess.VoteOption(s.ID(), payload.Option); err != nil {
			log.Debug().Err(err).Str("sid", s.ID()).Str("room", payload.RoomID).Msg("vote_option ignored")
		}
	})

	io.OnEvent("/", "send_reaction", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Emoji  string `json:"emoji"`
	}) {
		if payload.Emoji == "" {
			return
		}
		counts := g.bumpReaction(payload.RoomID, payload.Emoji)
		io.BroadcastToRoom("/", payload.RoomID, "reactions_updated", counts)
	})

	io.OnEvent("/", "ping", func(s socketio.Conn, clientTimestamp int64) {
		s.Emit("pong", map[string]any{
			"clientTimestamp": clientTimestamp,
			"serverTimestamp": time.Now().UnixMilli(),
		})
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.RoomID != "" {
			g.reg.Leave(ctx.RoomID, s.ID())
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve failed")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (g *Gateway) bumpReaction(roomID, emoji string) map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reactions[roomID] == nil {
		g.reactions[roomID] = make(map[string]int)
	}
	g.reactions[roomID][emoji]++
	out := make(map[string]int, len(g.reactions[roomID]))
	for k, v := range g.reactions[roomID] {
		out[k] = v
	}
	return out
}
