package shrike

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/synqronlabs/shrike/dns"
	"github.com/synqronlabs/shrike/geo"
)

// testClock is an adjustable time source shared by a validator and its
// cache.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// testMock returns a resolver preloaded with a healthy example.com zone.
func testMock() *dns.MockResolver {
	return &dns.MockResolver{
		MX: map[string][]*net.MX{
			"example.com.": {
				{Host: "mx2.example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 10},
			},
		},
		TXT: map[string][]string{
			"example.com.":        {"some=other record", "v=spf1 mx -all"},
			"_dmarc.example.com.": {"v=DMARC1; p=reject"},
		},
		A: map[string][]string{
			"mx1.example.com.": {"192.0.2.10"},
		},
	}
}

func testLocator() *geo.Mock {
	return &geo.Mock{
		Locations: map[string]geo.Location{
			"192.0.2.10": {
				City:    "Mountain View",
				Region:  "California",
				Country: "United States",
				IP:      "192.0.2.10",
			},
		},
	}
}

func newTestValidator(t *testing.T, cfg Config) (*Validator, *testClock) {
	t.Helper()
	if cfg.Locator == nil {
		cfg.Locator = NoLocator
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clock := newTestClock()
	v := NewValidator(cfg)
	v.now = clock.now
	v.cache.now = clock.now
	return v, clock
}

func TestValidateFullResult(t *testing.T) {
	mock := testMock()
	v, _ := newTestValidator(t, Config{Resolver: mock, Locator: testLocator()})

	result, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := Result{
		Email:        "user@example.com",
		Domain:       "example.com",
		HasMX:        true,
		HasSPF:       true,
		HasDMARC:     true,
		MXRecord:     "10 mx1.example.com, 20 mx2.example.com",
		SPFRecord:    "v=spf1 mx -all",
		DMARCRecord:  "v=DMARC1; p=reject",
		IsDisposable: false,
		IsSafe:       true,
		Verdict:      "Email domain appears valid and secure",
		MXGeo:        "Mountain View, California, United States (IP: 192.0.2.10)",
	}
	if *result != want {
		t.Errorf("result = %+v, want %+v", *result, want)
	}
}

func TestValidateMissingDMARCAdvisory(t *testing.T) {
	mock := &dns.MockResolver{
		MX: map[string][]*net.MX{
			"validdomain.test.": {{Host: "mx.validdomain.test.", Pref: 10}},
		},
		TXT: map[string][]string{
			"validdomain.test.": {"v=spf1 a -all"},
		},
	}
	v, _ := newTestValidator(t, Config{Resolver: mock})

	result, err := v.Validate(context.Background(), "user@validdomain.test")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if !result.HasMX || !result.HasSPF || result.HasDMARC || result.IsDisposable {
		t.Errorf("facts = %+v", result)
	}
	if !result.IsSafe {
		t.Error("IsSafe = false, want true: a missing DMARC record is advisory")
	}
	if !strings.Contains(result.Verdict, "missing DMARC") {
		t.Errorf("verdict = %q, want a missing DMARC advisory", result.Verdict)
	}
}

func TestValidateDisposableDomain(t *testing.T) {
	mock := testMock()
	mock.MX["mailinator.com."] = mock.MX["example.com."]
	v, _ := newTestValidator(t, Config{Resolver: mock})

	result, err := v.Validate(context.Background(), "throwaway@mailinator.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.IsDisposable {
		t.Error("IsDisposable = false, want true")
	}
	if result.IsSafe {
		t.Error("IsSafe = true, want false for a disposable domain")
	}
}

func TestValidateGeoUnknownOnFailure(t *testing.T) {
	mock := testMock()
	v, _ := newTestValidator(t, Config{
		Resolver: mock,
		Locator:  &geo.Mock{Err: errors.New("geo service down")},
	})

	result, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.MXGeo != "Unknown" {
		t.Errorf("MXGeo = %q, want %q", result.MXGeo, "Unknown")
	}
	if !result.HasMX || !result.IsSafe {
		t.Error("geolocation failure must not degrade the verdict")
	}
}

func TestValidateCacheTTL(t *testing.T) {
	mock := testMock()
	v, clock := newTestValidator(t, Config{Resolver: mock})

	for i := 0; i < 3; i++ {
		if _, err := v.Validate(context.Background(), "user@example.com"); err != nil {
			t.Fatalf("Validate %d: %v", i, err)
		}
	}
	if n := mock.QueryCount("mx", "example.com"); n != 1 {
		t.Errorf("mx queries within TTL = %d, want 1", n)
	}

	clock.advance(61 * time.Minute)

	if _, err := v.Validate(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("Validate after TTL: %v", err)
	}
	if n := mock.QueryCount("mx", "example.com"); n != 2 {
		t.Errorf("mx queries after TTL expiry = %d, want 2", n)
	}
}

// gateResolver delays MX answers until the gate is closed, keeping a
// lookup in flight for as long as a test needs.
type gateResolver struct {
	dns.Resolver
	gate chan struct{}
}

func (g *gateResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Resolver.LookupMX(ctx, name)
}

func TestValidateSingleFlight(t *testing.T) {
	mock := testMock()
	gated := &gateResolver{Resolver: mock, gate: make(chan struct{})}
	v, _ := newTestValidator(t, Config{Resolver: gated})

	const requests = 10
	var wg sync.WaitGroup
	errs := make([]error, requests)

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = v.Validate(context.Background(), "user@example.com")
		}(i)
	}

	// Give every request time to attach to the in-flight lookup, then
	// let it finish.
	time.Sleep(20 * time.Millisecond)
	close(gated.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Validate %d: %v", i, err)
		}
	}
	if n := mock.QueryCount("mx", "example.com"); n != 1 {
		t.Errorf("mx queries for %d concurrent requests = %d, want 1", requests, n)
	}
	if n := mock.QueryCount("txt", "example.com"); n != 1 {
		t.Errorf("spf queries for %d concurrent requests = %d, want 1", requests, n)
	}
}

func TestValidatePartialFactsOnDeadline(t *testing.T) {
	mock := testMock()
	gated := &gateResolver{Resolver: mock, gate: make(chan struct{})}
	v, _ := newTestValidator(t, Config{
		Resolver:       gated,
		RequestTimeout: 50 * time.Millisecond,
		LookupTimeout:  5 * time.Second,
	})

	result, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// The MX lookup was still blocked; SPF and DMARC had completed.
	if result.HasMX {
		t.Error("HasMX = true, want false while the MX lookup is outstanding")
	}
	if !result.HasSPF || !result.HasDMARC {
		t.Errorf("partial result lost completed facts: HasSPF=%v HasDMARC=%v",
			result.HasSPF, result.HasDMARC)
	}

	// The abandoned lookup keeps running and warms the cache.
	close(gated.gate)
	deadline := time.Now().Add(2 * time.Second)
	for v.CacheSize() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("abandoned lookup never warmed the cache")
		}
		time.Sleep(5 * time.Millisecond)
	}

	result, err = v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate from warmed cache: %v", err)
	}
	if !result.HasMX {
		t.Error("HasMX = false after cache warm, want true")
	}
	if n := mock.QueryCount("mx", "example.com"); n != 1 {
		t.Errorf("mx queries = %d, want 1", n)
	}
}

func TestValidateStaleCacheDuringOutage(t *testing.T) {
	mock := testMock()
	v, clock := newTestValidator(t, Config{Resolver: mock})

	if _, err := v.Validate(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	clock.advance(90 * time.Minute)
	mock.Down = true

	result, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate during outage: %v", err)
	}
	if !result.HasMX || !result.HasSPF {
		t.Errorf("stale result lost cached facts: %+v", result)
	}
}

func TestValidateTotalOutageWithoutCache(t *testing.T) {
	v, _ := newTestValidator(t, Config{Resolver: &dns.MockResolver{Down: true}})

	_, err := v.Validate(context.Background(), "user@example.com")
	if !errors.Is(err, ErrResolverUnavailable) {
		t.Fatalf("Validate error = %v, want ErrResolverUnavailable", err)
	}
}

func TestValidateDegradedNotCached(t *testing.T) {
	mock := testMock()
	mock.Fail = []string{"txt example.com."}
	v, _ := newTestValidator(t, Config{Resolver: mock})

	result, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.HasMX {
		t.Error("HasMX = false, want true despite the failed SPF query")
	}
	if result.HasSPF {
		t.Error("HasSPF = true, want false when the SPF query failed")
	}

	// A degraded lookup is not cached; the next request retries.
	if n := v.CacheSize(); n != 0 {
		t.Errorf("cache size after degraded lookup = %d, want 0", n)
	}
	if _, err := v.Validate(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if n := mock.QueryCount("mx", "example.com"); n != 2 {
		t.Errorf("mx queries = %d, want 2 (degraded result must not be cached)", n)
	}
}

func TestCacheSnapshotRoundTrip(t *testing.T) {
	mock := testMock()
	v, _ := newTestValidator(t, Config{Resolver: mock, Locator: testLocator()})

	want, err := v.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var buf bytes.Buffer
	if err := v.SaveCache(&buf); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	fresh := &dns.MockResolver{}
	v2, _ := newTestValidator(t, Config{Resolver: fresh})
	if err := v2.LoadCache(&buf); err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if n := v2.CacheSize(); n != 1 {
		t.Fatalf("cache size after load = %d, want 1", n)
	}

	got, err := v2.Validate(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("Validate from loaded cache: %v", err)
	}
	if *got != *want {
		t.Errorf("result from snapshot = %+v, want %+v", *got, *want)
	}
	if n := fresh.Calls(); n != 0 {
		t.Errorf("resolver received %d lookups despite a loaded cache, want 0", n)
	}
}
