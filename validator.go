package shrike

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Validator is the engine's public entry point. One request moves through
// Parsing, Resolving and Aggregating; syntax errors terminate in Parsing
// before any network I/O, and a total resolver outage without cached facts
// terminates in Resolving.
//
// A Validator is safe for concurrent use.
type Validator struct {
	config Config
	cache  *domainCache
	group  singleflight.Group
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]*factsBuilder
}

// NewValidator creates a Validator, applying configuration defaults.
func NewValidator(cfg Config) *Validator {
	cfg = cfg.withDefaults()
	now := time.Now
	return &Validator{
		config:   cfg,
		cache:    newDomainCache(cfg.CacheTTL, now),
		now:      now,
		inflight: make(map[string]*factsBuilder),
	}
}

// lookupOutcome is the singleflight payload.
type lookupOutcome struct {
	facts    *DomainFacts
	degraded bool
}

// Validate checks the email address and returns the validation result.
//
// Syntax failures return an error wrapping ErrInvalidEmail without any
// network I/O. A total resolver outage with no cached facts returns an
// error wrapping ErrResolverUnavailable. Everything else produces a
// result, possibly from partial facts when the request budget ran out.
func (v *Validator) Validate(ctx context.Context, email string) (*Result, error) {
	addr, err := ParseAddress(email)
	if err != nil {
		metricValidations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.config.RequestTimeout)
	defer cancel()

	facts, outcome, err := v.domainFacts(ctx, addr.Domain)
	if err != nil {
		metricValidations.WithLabelValues("unavailable").Inc()
		return nil, err
	}
	metricValidations.WithLabelValues(outcome).Inc()

	return buildResult(addr, facts), nil
}

// domainFacts returns facts for the domain, from cache when fresh,
// otherwise via a shared lookup. The returned outcome is "ok", "degraded"
// (partial facts) or "stale" (expired cache served during an outage).
func (v *Validator) domainFacts(ctx context.Context, domain string) (*DomainFacts, string, error) {
	if facts, fresh, ok := v.cache.get(domain); ok && fresh {
		metricCacheRequests.WithLabelValues("hit").Inc()
		return facts, "ok", nil
	}
	metricCacheRequests.WithLabelValues("miss").Inc()

	ch := v.group.DoChan(domain, func() (any, error) {
		return v.lookupDomain(ctx, domain)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metricSharedLookups.Inc()
		}
		if res.Err != nil {
			// Serve stale facts, if any, during a resolver outage.
			if facts, _, ok := v.cache.get(domain); ok {
				metricCacheRequests.WithLabelValues("stale").Inc()
				v.config.Logger.Warn("serving stale facts during resolver outage",
					"domain", domain)
				return facts, "stale", nil
			}
			return nil, "", res.Err
		}
		out := res.Val.(lookupOutcome)
		if out.degraded {
			return out.facts, "degraded", nil
		}
		return out.facts, "ok", nil

	case <-ctx.Done():
		// Request budget exhausted. Answer with whatever the lookup has
		// gathered so far; the lookup itself keeps running on its own
		// timeout and warms the cache when it completes.
		v.config.Logger.Warn("request deadline hit, returning partial facts",
			"domain", domain)
		if b := v.builder(domain); b != nil {
			return b.snapshot(v.now()), "degraded", nil
		}
		// The lookup finished between the deadline and here.
		if facts, _, ok := v.cache.get(domain); ok {
			return facts, "degraded", nil
		}
		return newFactsBuilder(domain).snapshot(v.now()), "degraded", nil
	}
}

// lookupDomain runs one full domain lookup, detached from the request
// context so an abandoned lookup still completes and warms the cache.
func (v *Validator) lookupDomain(ctx context.Context, domain string) (any, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.config.LookupTimeout)
	defer cancel()

	b := newFactsBuilder(domain)
	v.mu.Lock()
	v.inflight[domain] = b
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		delete(v.inflight, domain)
		v.mu.Unlock()
	}()

	start := v.now()
	facts, degraded, err := v.resolveDomain(lctx, domain, b)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		metricLookupDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		return nil, err
	case degraded:
		metricLookupDuration.WithLabelValues("degraded").Observe(elapsed.Seconds())
	default:
		metricLookupDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	}

	// Degraded facts are not cached; a later request should retry the
	// failed queries rather than pin their absence for a full TTL.
	if !degraded {
		v.cache.put(facts)
	}
	return lookupOutcome{facts: facts, degraded: degraded}, nil
}

// builder returns the in-flight facts builder for domain, if any.
func (v *Validator) builder(domain string) *factsBuilder {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight[domain]
}

// CacheSize returns the number of cached domains.
func (v *Validator) CacheSize() int {
	return v.cache.len()
}

// SaveCache writes the domain-facts cache as a MessagePack snapshot,
// typically on shutdown.
func (v *Validator) SaveCache(w io.Writer) error {
	return v.cache.save(w)
}

// LoadCache merges a snapshot written by SaveCache into the cache,
// typically on startup.
func (v *Validator) LoadCache(r io.Reader) error {
	return v.cache.load(r)
}

// Run prunes long-expired cache entries periodically until ctx is
// cancelled. Optional; the cache works without it but then only sheds
// entries on snapshot reload.
func (v *Validator) Run(ctx context.Context) {
	ticker := time.NewTicker(v.config.CacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.cache.prune()
		}
	}
}
