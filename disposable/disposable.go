// Package disposable classifies email domains as disposable/temporary
// providers (mailinator.com and friends).
//
// The classifier holds an immutable snapshot of known provider domains.
// Lookups are an exact-match set test plus a small list of suffix patterns
// ("*.mailinator.com"). Refreshes build a complete new snapshot and swap it
// atomically; readers never observe a half-loaded set.
package disposable

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

//go:embed list.txt
var seedFS embed.FS

// Set is an immutable snapshot of disposable provider domains.
type Set struct {
	exact    map[string]struct{}
	suffixes []string // stored without the leading "*.", e.g. "mailinator.com"
}

// NewSet builds a snapshot from domain entries. Entries starting with "*."
// become suffix patterns, everything else is an exact match. Entries are
// lower-cased; empty entries and "#" comments are ignored.
func NewSet(entries []string) *Set {
	s := &Set{exact: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || strings.HasPrefix(e, "#") {
			continue
		}
		if suffix, ok := strings.CutPrefix(e, "*."); ok {
			s.suffixes = append(s.suffixes, suffix)
			continue
		}
		s.exact[e] = struct{}{}
	}
	return s
}

// ReadSet builds a snapshot from newline-separated domains.
func ReadSet(r io.Reader) (*Set, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		entries = append(entries, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("disposable: reading list: %w", err)
	}
	return NewSet(entries), nil
}

// seedSet returns the snapshot built from the embedded list.
func seedSet() *Set {
	f, err := seedFS.Open("list.txt")
	if err != nil {
		// The file is embedded at compile time.
		panic(err)
	}
	defer f.Close()
	s, err := ReadSet(f)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether domain is a known disposable provider.
// The domain must already be normalized (lower case, no trailing dot).
func (s *Set) Contains(domain string) bool {
	if _, ok := s.exact[domain]; ok {
		return true
	}
	for _, suffix := range s.suffixes {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return true
		}
	}
	return false
}

// Len returns the number of exact entries plus suffix patterns.
func (s *Set) Len() int {
	return len(s.exact) + len(s.suffixes)
}

// Config contains configuration for the Classifier.
type Config struct {
	// File is an optional local list file, one domain per line, loaded on
	// start and on every refresh. Overrides the embedded seed list.
	File string

	// FeedURL is an optional remote feed with the same line format,
	// fetched on every refresh.
	FeedURL string

	// RefreshInterval is how often File and FeedURL are re-read.
	// Default is 24 hours; refresh only runs when a source is set.
	RefreshInterval time.Duration

	// HTTPClient is used for FeedURL fetches. Default has a 30s timeout.
	HTTPClient *http.Client

	// Logger for refresh outcomes. Default slog.Default().
	Logger *slog.Logger
}

// Classifier answers whether a domain belongs to a disposable email
// provider. Safe for concurrent use; the classifier never fails, unknown
// domains are simply not disposable.
type Classifier struct {
	config  Config
	current atomic.Pointer[Set]
}

// NewClassifier creates a classifier seeded with the embedded provider
// list. If cfg.File is set it is loaded immediately; a load error falls
// back to the seed list and is logged, not fatal.
func NewClassifier(cfg Config) *Classifier {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 24 * time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Classifier{config: cfg}
	c.current.Store(seedSet())

	if cfg.File != "" || cfg.FeedURL != "" {
		if err := c.Refresh(context.Background()); err != nil {
			cfg.Logger.Warn("disposable list load failed, using seed list",
				slog.Any("error", err))
		}
	}
	return c
}

// IsDisposable reports whether the domain is a known disposable provider.
func (c *Classifier) IsDisposable(domain string) bool {
	return c.current.Load().Contains(strings.ToLower(strings.TrimSuffix(domain, ".")))
}

// Snapshot returns the current set.
func (c *Classifier) Snapshot() *Set {
	return c.current.Load()
}

// Replace swaps in the given snapshot.
func (c *Classifier) Replace(s *Set) {
	c.current.Store(s)
}

// Refresh rebuilds the snapshot from the configured sources and swaps it
// in. The previous snapshot stays active if every source fails.
func (c *Classifier) Refresh(ctx context.Context) error {
	var entries []string

	if c.config.File != "" {
		fileEntries, err := readFile(c.config.File)
		if err != nil {
			return err
		}
		entries = append(entries, fileEntries...)
	}

	if c.config.FeedURL != "" {
		feedEntries, err := c.fetchFeed(ctx)
		if err != nil {
			return err
		}
		entries = append(entries, feedEntries...)
	}

	if len(entries) == 0 {
		return nil
	}

	s := NewSet(entries)
	c.current.Store(s)
	c.config.Logger.Info("disposable list refreshed", slog.Int("entries", s.Len()))
	return nil
}

// Run refreshes the list on a timer until ctx is cancelled. It does
// nothing when no refresh source is configured.
func (c *Classifier) Run(ctx context.Context) {
	if c.config.File == "" && c.config.FeedURL == "" {
		return
	}

	ticker := time.NewTicker(c.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.config.Logger.Warn("disposable list refresh failed",
					slog.Any("error", err))
			}
		}
	}
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("disposable: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	var entries []string
	for s.Scan() {
		entries = append(entries, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("disposable: reading %s: %w", path, err)
	}
	return entries, nil
}

func (c *Classifier) fetchFeed(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("disposable: %w", err)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("disposable: fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("disposable: feed returned status %d", resp.StatusCode)
	}

	s := bufio.NewScanner(resp.Body)
	var entries []string
	for s.Scan() {
		entries = append(entries, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("disposable: reading feed: %w", err)
	}
	return entries, nil
}
