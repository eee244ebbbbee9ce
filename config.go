package shrike

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/synqronlabs/shrike/disposable"
	"github.com/synqronlabs/shrike/dns"
	"github.com/synqronlabs/shrike/geo"
)

// Config contains configuration options for the Validator.
type Config struct {
	// Resolver performs the DNS lookups. Default is a dns.NewResolver
	// with its default configuration (system nameservers, 3s query
	// timeout, 2 retries with exponential backoff).
	Resolver dns.Resolver

	// Classifier answers disposable-domain membership. Default is a
	// classifier seeded with the embedded provider list.
	Classifier *disposable.Classifier

	// Locator geolocates the primary mail exchanger. Default is the
	// ip-api.com client. Set to nil inside a custom Config to keep the
	// default; use NoLocator to disable geolocation entirely.
	Locator geo.Locator

	// Logger for request-level events. Default slog.Default().
	Logger *slog.Logger

	// CacheTTL is how long domain facts are served from cache.
	// Default 1 hour.
	CacheTTL time.Duration

	// RequestTimeout is the per-request wall-clock budget. Lookups still
	// outstanding at the deadline are abandoned by the request (their
	// fields default to absent) but keep running in the background to
	// warm the cache. Default 8 seconds.
	RequestTimeout time.Duration

	// LookupTimeout bounds a background domain lookup. Default is twice
	// RequestTimeout.
	LookupTimeout time.Duration
}

// withDefaults returns the configuration with defaults applied.
func (c Config) withDefaults() Config {
	if c.Resolver == nil {
		c.Resolver = dns.NewResolver(dns.ResolverConfig{})
	}
	if c.Classifier == nil {
		c.Classifier = disposable.NewClassifier(disposable.Config{})
	}
	if c.Locator == nil {
		c.Locator = geo.NewClient(geo.Config{})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 8 * time.Second
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = 2 * c.RequestTimeout
	}
	return c
}

// NoLocator is a geo.Locator that always reports the location as unknown.
// Use it to disable geolocation lookups.
var NoLocator geo.Locator = noLocator{}

type noLocator struct{}

func (noLocator) Locate(_ context.Context, _ net.IP) (geo.Location, error) {
	return geo.Location{}, geo.ErrNotFound
}
