package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/mayuriWagh2002/crowd-music-mvp/internal/config"
	"github.com/mayuriWagh2002/crowd-music-mvp/internal/history"
	"github.com/mayuriWagh2002/crowd-music-mvp/internal/rewrite"
	"github.com/mayuriWagh2002/crowd-music-mvp/internal/room"
	"github.com/mayuriWagh2002/crowd-music-mvp/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Crowd Music - collaborative realtime songwriting server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                     Port to listen on (default: 8080)
  REWRITE_URL              External rewrite service endpoint (empty = local fallback)
  REWRITE_TIMEOUT_SECONDS  Rewrite call deadline (default: 5)
  DB_PATH                  SQLite winners log path (default: crowd_music.sqlite)
  DEFAULT_THEME            Theme for fresh rooms (default: "lofi heartbreak")
  SUBMIT_SECONDS           Submit phase length (default: 30)
  VOTE_SECONDS             Vote phase length (default: 15)
  AI_SECONDS               AI phase length (default: 10)
  BOT_COUNT                Demo-mode bot roster size (default: 8)
  QUESTION_WINDOW_SECONDS  Producer poll window (default: 8)
  WINNER_CLEAR_SECONDS     Winner banner lifetime (default: 6)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Crowd Music %s\n", version)
		return
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()

	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Winners log is best-effort: if it cannot open, the show goes on.
	var store *history.Store
	if s, err := history.Open(cfg.DBPath); err != nil {
		zerologlog.Error().Err(err).Str("path", cfg.DBPath).Msg("winners log unavailable")
	} else {
		store = s
		defer store.Close()
	}

	rw := rewrite.New(cfg.RewriteURL, cfg.RewriteTimeout)

	var sink room.WinnerSink
	if store != nil {
		sink = store
	}
	reg := room.NewRegistry(room.Config{
		SubmitSeconds:  cfg.SubmitSeconds,
		VoteSeconds:    cfg.VoteSeconds,
		AISeconds:      cfg.AISeconds,
		BotCount:       cfg.BotCount,
		DefaultTheme:   cfg.DefaultTheme,
		QuestionWindow: cfg.QuestionWindow,
		WinnerClear:    cfg.WinnerClear,
	}, rw, sink)

	gw := ws.New(reg)
	reg.SetPublisher(gw.Publish)
	io := gw.Mount(r)
	defer io.Close()

	// Lobby preview: read-only, safe to poll. Lazily creates the room with
	// defaults but never starts its ticker.
	r.GET("/api/room-preview/:roomId", func(c *gin.Context) {
		sess := reg.GetOrCreate(c.Param("roomId"))
		c.JSON(http.StatusOK, sess.Preview())
	})

	r.GET("/api/history/:roomId", func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
			return
		}
		winners, err := store.ByRoom(c.Param("roomId"))
		if err != nil {
			zerologlog.Error().Err(err).Msg("history query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"winners": winners})
	})

	zerologlog.Info().Str("port", port).Msg("listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
