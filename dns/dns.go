// Package dns provides the DNS lookups needed for email-domain validation:
// MX records, TXT records (SPF and DMARC policies) and host addresses for
// mail-exchanger geolocation.
//
// Two implementations of the Resolver interface are provided. Resolver
// lookups are issued with github.com/miekg/dns against configurable
// upstream nameservers with retries and exponential backoff. StdResolver
// uses the standard library resolver and is useful when no custom upstream
// configuration is needed.
//
// Lookup failures are reported through a small set of sentinel errors so
// callers can distinguish "the record does not exist" (ErrNotFound, from
// NXDOMAIN or an empty answer) from transient resolver trouble (ErrTimeout,
// ErrServFail) that may succeed on retry.
package dns

import (
	"context"
	"errors"
	"net"
)

// Lookup errors. Implementations map protocol-level failures onto these so
// callers can use errors.Is and the helpers below.
var (
	// ErrNotFound indicates the name or record type does not exist
	// (NXDOMAIN, or a NOERROR response without matching records).
	ErrNotFound = errors.New("dns: no such record")

	// ErrTimeout indicates the query did not complete in time.
	ErrTimeout = errors.New("dns: query timeout")

	// ErrServFail indicates the upstream resolver returned SERVFAIL.
	ErrServFail = errors.New("dns: server failure")

	// ErrRefused indicates the upstream resolver refused the query.
	ErrRefused = errors.New("dns: query refused")

	// ErrMalformed indicates the response could not be interpreted.
	ErrMalformed = errors.New("dns: malformed response")
)

// IsNotFound reports whether err means the record does not exist.
// This is a terminal condition, not a resolver failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsServFail reports whether err is an upstream server failure.
func IsServFail(err error) bool {
	return errors.Is(err, ErrServFail)
}

// IsTemporary reports whether err may succeed if the query is retried.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrServFail) || errors.Is(err, ErrRefused)
}

// Resolver is the interface for the DNS lookups used by the validation
// engine. Implementations must be safe for concurrent use.
type Resolver interface {
	// LookupMX retrieves MX records for the given domain.
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)

	// LookupTXT retrieves TXT records for the given name. Records split
	// into multiple character strings are joined per RFC 7208 Section 3.3.
	LookupTXT(ctx context.Context, name string) ([]string, error)

	// LookupIP retrieves A and AAAA records for the given host.
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}
