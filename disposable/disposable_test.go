package disposable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSetContains(t *testing.T) {
	s := NewSet([]string{
		"mailinator.com",
		"*.mailinator.com",
		"10MinuteMail.com",
		"# a comment",
		"",
		"  trashmail.com  ",
	})

	tests := []struct {
		domain string
		want   bool
	}{
		{"mailinator.com", true},
		{"abc.mailinator.com", true},
		{"deep.sub.mailinator.com", true},
		{"10minutemail.com", true}, // entry case-normalized
		{"trashmail.com", true},    // entry trimmed
		{"gmail.com", false},
		{"notmailinator.com", false}, // suffix match requires a dot boundary
		{"mailinator.com.evil.example", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := s.Contains(tt.domain); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}

func TestClassifierSeedList(t *testing.T) {
	c := NewClassifier(Config{})

	if !c.IsDisposable("mailinator.com") {
		t.Error("mailinator.com should be disposable")
	}
	if !c.IsDisposable("MAILINATOR.COM") {
		t.Error("classifier lookups should be case-insensitive")
	}
	if !c.IsDisposable("mailinator.com.") {
		t.Error("trailing dot should be tolerated")
	}
	if !c.IsDisposable("team.mailinator.com") {
		t.Error("mailinator subdomains should be disposable")
	}
	if c.IsDisposable("gmail.com") {
		t.Error("gmail.com should not be disposable")
	}
	if c.Snapshot().Len() == 0 {
		t.Error("seed list should not be empty")
	}
}

func TestClassifierFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(path, []byte("# custom\nexample-disposable.test\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(Config{File: path})

	if !c.IsDisposable("example-disposable.test") {
		t.Error("file entry should be disposable")
	}
	// A file source replaces the embedded seed list entirely.
	if c.IsDisposable("mailinator.com") {
		t.Error("seed entries should be replaced by the file source")
	}
}

func TestClassifierFeedRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("feed-disposable.test\n*.feedsub.test\n"))
	}))
	defer srv.Close()

	c := NewClassifier(Config{FeedURL: srv.URL})

	if !c.IsDisposable("feed-disposable.test") {
		t.Error("feed entry should be disposable")
	}
	if !c.IsDisposable("a.feedsub.test") {
		t.Error("feed suffix entry should match subdomains")
	}
}

func TestClassifierRefreshFailureKeepsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClassifier(Config{})
	c.Replace(NewSet([]string{"keep-me.test"}))
	c.config.FeedURL = srv.URL

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if !c.IsDisposable("keep-me.test") {
		t.Error("previous snapshot should remain active after a failed refresh")
	}
}
