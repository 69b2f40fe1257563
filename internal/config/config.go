package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	RewriteURL     string
	RewriteTimeout time.Duration
	DBPath         string
	DefaultTheme   string
	SubmitSeconds  int
	VoteSeconds    int
	AISeconds      int
	BotCount       int
	QuestionWindow time.Duration
	WinnerClear    time.Duration
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.RewriteURL = os.Getenv("REWRITE_URL")
	c.RewriteTimeout = time.Duration(getint("REWRITE_TIMEOUT_SECONDS", 5)) * time.Second
	c.DBPath = getenv("DB_PATH", "crowd_music.sqlite")
	c.DefaultTheme = getenv("DEFAULT_THEME", "lofi heartbreak")
	c.SubmitSeconds = getint("SUBMIT_SECONDS", 30)
	c.VoteSeconds = getint("VOTE_SECONDS", 15)
	c.AISeconds = getint("AI_SECONDS", 10)
	c.BotCount = getint("BOT_COUNT", 8)
	c.QuestionWindow = time.Duration(getint("QUESTION_WINDOW_SECONDS", 8)) * time.Second
	c.WinnerClear = time.Duration(getint("WINNER_CLEAR_SECONDS", 6)) * time.Second
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
