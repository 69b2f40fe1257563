// Package rewrite calls the external line-rewriting service and guarantees
// a usable result: on any failure, timeout or malformed response it resolves
// to a deterministic local fallback instead of an error.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const suggestionCount = 3

type Client struct {
	BaseURL string
	Timeout time.Duration
	http    *http.Client
}

// New builds a client for the rewrite endpoint. An empty baseURL means no
// upstream is configured and every call resolves straight to the fallback.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Rewrite returns exactly three short rewritten variants of line. The call
// is bounded by the client deadline; the caller never sees an error.
func (c *Client) Rewrite(ctx context.Context, line, theme string) []string {
	if c.BaseURL == "" {
		return Fallback(line, theme)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	payload := map[string]string{"line": line, "theme": theme}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(b))
	if err != nil {
		return Fallback(line, theme)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("rewrite upstream unreachable, using fallback")
		return Fallback(line, theme)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		log.Warn().Int("status", resp.StatusCode).Msg("rewrite upstream error, using fallback")
		return Fallback(line, theme)
	}

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Warn().Err(err).Msg("rewrite upstream malformed, using fallback")
		return Fallback(line, theme)
	}
	return normalize(out.Suggestions, line, theme)
}

// Fallback is a pure function of (line, theme): no network, no randomness,
// so the ai phase always has three well-formed suggestions to vote on.
func Fallback(line, theme string) []string {
	return []string{
		line,
		line + "…",
		"Say it again, but softer.",
	}
}

// normalize trims, drops blanks, caps at three and pads deterministically
// from the fallback when the upstream returned too little.
func normalize(raw []string, line, theme string) []string {
	out := make([]string, 0, suggestionCount)
	for _, s := range raw {
		if len(out) == suggestionCount {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	for _, s := range Fallback(line, theme) {
		if len(out) == suggestionCount {
			break
		}
		out = append(out, s)
	}
	return out
}
