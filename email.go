package shrike

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// Address is a syntactically validated email address.
type Address struct {
	// Raw is the trimmed input as given.
	Raw string

	// LocalPart is the part before the last "@", case preserved.
	LocalPart string

	// Domain is the part after the last "@": lower-cased, trailing dot
	// removed, internationalized labels converted to punycode (ASCII)
	// form. This is the cache key for domain facts.
	Domain string
}

// String returns the address with the normalized domain.
func (a Address) String() string {
	return a.LocalPart + "@" + a.Domain
}

// ParseAddress validates the syntax of an email address and normalizes its
// domain. It accepts bare RFC 5322 addr-spec forms ("user@example.com"),
// not display-name forms ("User <user@example.com>"). The domain must have
// at least two labels; single-label domains cannot receive public mail.
//
// Syntax failures wrap ErrInvalidEmail. No network I/O is performed.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Address{}, fmt.Errorf("%w: empty input", ErrInvalidEmail)
	}

	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if parsed.Address != raw {
		// Display-name or comment form; the API takes bare addresses.
		return Address{}, fmt.Errorf("%w: not a bare address", ErrInvalidEmail)
	}

	at := strings.LastIndex(raw, "@")
	local, domain := raw[:at], raw[at+1:]

	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if !strings.Contains(domain, ".") {
		return Address{}, fmt.Errorf("%w: domain %q has no dot", ErrInvalidEmail, domain)
	}

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad domain %q: %v", ErrInvalidEmail, domain, err)
	}

	return Address{
		Raw:       raw,
		LocalPart: local,
		Domain:    ascii,
	}, nil
}
