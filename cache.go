package shrike

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tinylib/msgp/msgp"
)

// domainCache holds resolved DomainFacts per normalized domain. Entries
// are complete, immutable values replaced wholesale; readers never see a
// half-updated entry. Expired entries are kept so they can serve as a
// stale fallback during a total resolver outage.
type domainCache struct {
	mu      sync.Mutex
	entries map[string]*DomainFacts
	ttl     time.Duration
	now     func() time.Time
}

func newDomainCache(ttl time.Duration, now func() time.Time) *domainCache {
	return &domainCache{
		entries: make(map[string]*DomainFacts),
		ttl:     ttl,
		now:     now,
	}
}

// get returns the cached facts for domain and whether they are still
// within the TTL. Stale entries are returned with fresh=false.
func (c *domainCache) get(domain string) (facts *DomainFacts, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.entries[domain]
	if !ok {
		return nil, false, false
	}
	return f, c.now().Sub(f.Resolved) < c.ttl, true
}

// put stores facts, replacing any previous entry for the domain.
func (c *domainCache) put(facts *DomainFacts) {
	c.mu.Lock()
	c.entries[facts.Domain] = facts
	c.mu.Unlock()
}

// len returns the number of cached domains.
func (c *domainCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// prune drops entries that have been stale for longer than the TTL (so
// twice the TTL after resolution). Stale-but-recent entries survive as
// outage fallback.
func (c *domainCache) prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-2 * c.ttl)
	for domain, f := range c.entries {
		if f.Resolved.Before(cutoff) {
			delete(c.entries, domain)
		}
	}
}

// save writes all entries as a MessagePack stream.
func (c *domainCache) save(w io.Writer) error {
	c.mu.Lock()
	entries := make([]*DomainFacts, 0, len(c.entries))
	for _, f := range c.entries {
		entries = append(entries, f)
	}
	c.mu.Unlock()

	en := msgp.NewWriter(w)
	if err := en.WriteArrayHeader(uint32(len(entries))); err != nil {
		return fmt.Errorf("shrike: writing snapshot: %w", err)
	}
	for _, f := range entries {
		if err := f.EncodeMsg(en); err != nil {
			return fmt.Errorf("shrike: writing snapshot: %w", err)
		}
	}
	return en.Flush()
}

// load reads a MessagePack stream written by save and merges the entries
// into the cache. Entries already stale beyond the prune horizon are
// skipped.
func (c *domainCache) load(r io.Reader) error {
	dc := msgp.NewReader(r)
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return fmt.Errorf("shrike: reading snapshot: %w", err)
	}

	cutoff := c.now().Add(-2 * c.ttl)
	for range n {
		var f DomainFacts
		if err := f.DecodeMsg(dc); err != nil {
			return fmt.Errorf("shrike: reading snapshot: %w", err)
		}
		if f.Domain == "" || f.Resolved.Before(cutoff) {
			continue
		}
		c.put(&f)
	}
	return nil
}
