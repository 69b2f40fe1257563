package rewrite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFallbackIsDeterministic(t *testing.T) {
	a := Fallback("hold my hand", "lofi heartbreak")
	b := Fallback("hold my hand", "lofi heartbreak")
	if len(a) != 3 {
		t.Fatalf("expected 3 fallback lines, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fallback must be pure: %q != %q", a[i], b[i])
		}
		if a[i] == "" {
			t.Fatal("fallback lines must be non-empty")
		}
	}
	if a[0] != "hold my hand" {
		t.Fatalf("first fallback line should echo the original, got %q", a[0])
	}
}

func TestRewriteWithoutUpstream(t *testing.T) {
	c := New("", 0)
	got := c.Rewrite(context.Background(), "line one", "theme")
	want := Fallback("line one", "theme")
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("no-upstream rewrite should be the fallback, got %v", got)
		}
	}
}

func TestRewriteSuccessTruncatesToThree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"suggestions":["one","two","three","four","five"]}`))
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Rewrite(context.Background(), "l", "t")
	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Fatalf("expected first three upstream suggestions, got %v", got)
	}
}

func TestRewriteShortResponsePadded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"suggestions":["only one", "  ", ""]}`))
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Rewrite(context.Background(), "line", "t")
	if len(got) != 3 {
		t.Fatalf("expected padding to 3, got %v", got)
	}
	if got[0] != "only one" {
		t.Fatalf("upstream suggestion should come first, got %v", got)
	}
	if got[1] != "line" {
		t.Fatalf("padding should come from the fallback, got %v", got)
	}
}

func TestRewriteErrorStatusFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Rewrite(context.Background(), "line", "t")
	want := Fallback("line", "t")
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("error status should fall back, got %v", got)
		}
	}
}

func TestRewriteMalformedBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"suggestions": "not an array"`))
	}))
	defer srv.Close()

	got := New(srv.URL, time.Second).Rewrite(context.Background(), "line", "t")
	if len(got) != 3 || got[0] != "line" {
		t.Fatalf("malformed body should fall back, got %v", got)
	}
}

func TestRewriteDeadlineFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"suggestions":["too late"]}`))
	}))
	defer srv.Close()

	start := time.Now()
	got := New(srv.URL, 20*time.Millisecond).Rewrite(context.Background(), "line", "t")
	if time.Since(start) > 150*time.Millisecond {
		t.Fatal("deadline was not enforced")
	}
	if len(got) != 3 || got[0] != "line" {
		t.Fatalf("timeout should fall back, got %v", got)
	}
}
