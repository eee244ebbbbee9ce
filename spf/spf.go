// Package spf parses SPF (Sender Policy Framework, RFC 7208) DNS TXT
// records into a structured form.
//
// Only the record syntax is handled here. The validation engine needs to
// know whether a domain publishes a well-formed SPF policy, not whether a
// particular sender IP would pass it, so there is no evaluator and include
// directives are not resolved recursively.
package spf

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Parsing errors.
var (
	ErrSyntax           = errors.New("spf: malformed SPF record")
	ErrInvalidMechanism = errors.New("spf: invalid mechanism")
	ErrInvalidCIDR      = errors.New("spf: invalid CIDR length")
	ErrInvalidIP        = errors.New("spf: invalid IP address")
)

// Record is a parsed SPF DNS TXT record.
//
// An example record for example.com:
//
//	v=spf1 +mx include:_spf.example.com ip4:192.0.2.0/24 ~all
type Record struct {
	// Version is always "spf1".
	Version string

	// Directives are evaluated in order until a match is found.
	Directives []Directive

	// Redirect is the domain from the "redirect=" modifier, if present.
	Redirect string

	// Explanation is the domain from the "exp=" modifier, if present.
	Explanation string

	// Other contains modifiers other than redirect and exp.
	Other []Modifier
}

// Directive is a mechanism with an optional qualifier and parameters.
type Directive struct {
	// Qualifier sets the result if this directive matches: "" and "+"
	// mean pass, "-" fail, "?" neutral, "~" softfail.
	Qualifier string

	// Mechanism is one of "all", "include", "a", "mx", "ptr", "ip4",
	// "ip6", "exists".
	Mechanism string

	// DomainSpec is the parameter of include, a, mx, ptr and exists
	// mechanisms. Macro syntax is carried verbatim, not expanded.
	DomainSpec string

	// IP is the address of an ip4 or ip6 mechanism.
	IP net.IP

	// CIDRLen is the prefix length of an ip4/ip6 mechanism, or -1 when
	// no prefix was given.
	CIDRLen int
}

// Modifier is an unknown "key=value" modifier. Keys are case-insensitive.
type Modifier struct {
	Key   string
	Value string
}

// String returns the directive in record form.
func (d Directive) String() string {
	var b strings.Builder
	b.WriteString(d.Qualifier)
	b.WriteString(d.Mechanism)
	if d.DomainSpec != "" {
		b.WriteByte(':')
		b.WriteString(d.DomainSpec)
	} else if d.IP != nil {
		b.WriteByte(':')
		b.WriteString(d.IP.String())
	}
	if d.CIDRLen >= 0 {
		fmt.Fprintf(&b, "/%d", d.CIDRLen)
	}
	return b.String()
}

// String returns the record as a DNS TXT record string.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("v=")
	b.WriteString(r.Version)

	for _, d := range r.Directives {
		b.WriteByte(' ')
		b.WriteString(d.String())
	}
	if r.Redirect != "" {
		b.WriteString(" redirect=")
		b.WriteString(r.Redirect)
	}
	if r.Explanation != "" {
		b.WriteString(" exp=")
		b.WriteString(r.Explanation)
	}
	for _, m := range r.Other {
		fmt.Fprintf(&b, " %s=%s", m.Key, m.Value)
	}
	return b.String()
}

// Mechanisms returns the mechanism names of all directives, in order.
func (r Record) Mechanisms() []string {
	names := make([]string, len(r.Directives))
	for i, d := range r.Directives {
		names[i] = d.Mechanism
	}
	return names
}
