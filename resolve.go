package shrike

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synqronlabs/shrike/dns"
)

// factsBuilder accumulates component results for one in-flight domain
// lookup. Requests that hit their deadline while the lookup is still
// running take a snapshot of whatever has been gathered so far.
type factsBuilder struct {
	mu    sync.Mutex
	facts DomainFacts
}

func newFactsBuilder(domain string) *factsBuilder {
	return &factsBuilder{facts: DomainFacts{Domain: domain}}
}

func (b *factsBuilder) setMX(hosts []MXHost) {
	b.mu.Lock()
	b.facts.MXHosts = hosts
	b.mu.Unlock()
}

func (b *factsBuilder) setSPF(raw string) {
	b.mu.Lock()
	b.facts.SPFRecord = raw
	b.mu.Unlock()
}

func (b *factsBuilder) setDMARC(raw string) {
	b.mu.Lock()
	b.facts.DMARCRecord = raw
	b.mu.Unlock()
}

func (b *factsBuilder) setDisposable(v bool) {
	b.mu.Lock()
	b.facts.Disposable = v
	b.mu.Unlock()
}

func (b *factsBuilder) setGeo(display string) {
	b.mu.Lock()
	b.facts.Geo = display
	b.mu.Unlock()
}

// snapshot returns a copy of the facts gathered so far, stamped with the
// given resolution time.
func (b *factsBuilder) snapshot(now time.Time) *DomainFacts {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.facts
	f.MXHosts = append([]MXHost(nil), f.MXHosts...)
	f.Resolved = now
	return &f
}

// resolveDomain gathers all facts for a domain. The MX, SPF and DMARC
// queries and the disposable check run concurrently; geolocation follows
// MX resolution since it needs the primary exchanger's address.
//
// A record that does not exist (NXDOMAIN) is a finding, not a failure.
// Individual query failures degrade the result to partial facts; only when
// every DNS query fails with a resolver-level error does the lookup fail
// as a whole with ErrResolverUnavailable.
func (v *Validator) resolveDomain(ctx context.Context, domain string, b *factsBuilder) (facts *DomainFacts, degraded bool, err error) {
	var wg sync.WaitGroup
	var mxErr, spfErr, dmarcErr error

	wg.Add(4)

	go func() {
		defer wg.Done()
		hosts, err := v.lookupMX(ctx, domain)
		if err != nil {
			mxErr = err
			return
		}
		b.setMX(hosts)
		if len(hosts) > 0 {
			b.setGeo(v.locateMX(ctx, hosts[0]))
		}
	}()

	go func() {
		defer wg.Done()
		raw, err := v.lookupTXTRecord(ctx, domain, spfPrefix, true)
		if err != nil {
			spfErr = err
			return
		}
		b.setSPF(raw)
	}()

	go func() {
		defer wg.Done()
		raw, err := v.lookupTXTRecord(ctx, "_dmarc."+domain, dmarcPrefix, false)
		if err != nil {
			dmarcErr = err
			return
		}
		b.setDMARC(raw)
	}()

	go func() {
		defer wg.Done()
		b.setDisposable(v.config.Classifier.IsDisposable(domain))
	}()

	wg.Wait()

	if mxErr != nil && spfErr != nil && dmarcErr != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrResolverUnavailable, mxErr)
	}

	for _, qerr := range []error{mxErr, spfErr, dmarcErr} {
		if qerr != nil {
			degraded = true
			v.config.Logger.Warn("degraded domain lookup",
				"domain", domain, "error", qerr)
		}
	}

	return b.snapshot(v.now()), degraded, nil
}

// lookupMX resolves and orders the domain's mail exchangers. A domain
// without MX records yields an empty slice, not an error: such a domain
// simply cannot receive mail.
func (v *Validator) lookupMX(ctx context.Context, domain string) ([]MXHost, error) {
	records, err := v.config.Resolver.LookupMX(ctx, domain)
	if err != nil {
		if dns.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mx %s: %w", domain, err)
	}

	hosts := make([]MXHost, 0, len(records))
	for _, r := range records {
		hosts = append(hosts, MXHost{
			Pref: r.Pref,
			Host: strings.TrimSuffix(r.Host, "."),
		})
	}
	sort.SliceStable(hosts, func(i, j int) bool {
		return hosts[i].Pref < hosts[j].Pref
	})
	return hosts, nil
}

// TXT record prefixes identifying the policy records among a domain's TXT
// records. SPF version tags are case-insensitive; the DMARC version tag is
// the literal "DMARC1".
const (
	spfPrefix   = "v=spf1"
	dmarcPrefix = "v=DMARC1"
)

// lookupTXTRecord returns the first TXT record at name with the given
// prefix, or "" when the name or record does not exist. The SPF version
// tag is matched case-insensitively (fold), the DMARC one is not.
func (v *Validator) lookupTXTRecord(ctx context.Context, name, prefix string, fold bool) (string, error) {
	records, err := v.config.Resolver.LookupTXT(ctx, name)
	if err != nil {
		if dns.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("txt %s: %w", name, err)
	}

	for _, r := range records {
		r = strings.Trim(r, `"`)
		s := r
		if fold {
			s = strings.ToLower(s)
			prefix = strings.ToLower(prefix)
		}
		if strings.HasPrefix(s, prefix) {
			return r, nil
		}
	}
	return "", nil
}

// locateMX geolocates a mail exchanger, returning the display location or
// "" when anything along the way fails. Geolocation never fails a lookup.
func (v *Validator) locateMX(ctx context.Context, mx MXHost) string {
	ips, err := v.config.Resolver.LookupIP(ctx, mx.Host)
	if err != nil || len(ips) == 0 {
		return ""
	}

	loc, err := v.config.Locator.Locate(ctx, ips[0])
	if err != nil {
		return ""
	}
	return loc.String()
}
