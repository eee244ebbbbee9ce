// Package dmarc parses DMARC (RFC 7489) DNS TXT records, published at
// "_dmarc.<domain>", into a structured form.
//
// Only the record syntax is handled here. The validation engine reports a
// domain's published DMARC posture (record present, well-formed, and which
// policy it requests); it does not evaluate messages against the policy.
package dmarc

import (
	"errors"
	"fmt"
	"strings"
)

// Parsing errors.
var (
	// ErrSyntax indicates the record has invalid syntax.
	ErrSyntax = errors.New("dmarc: malformed DMARC record")

	// ErrMultipleRecords indicates a domain publishes more than one DMARC
	// record. Per RFC 7489 Section 6.6.3 the domain must then be treated
	// as not implementing DMARC.
	ErrMultipleRecords = errors.New("dmarc: multiple DMARC records")
)

// Policy determines how receivers should handle messages that fail DMARC.
type Policy string

const (
	// PolicyEmpty is only for the optional SubdomainPolicy field.
	PolicyEmpty Policy = ""

	// PolicyNone requests no specific action, typically used for
	// monitoring during initial deployment.
	PolicyNone Policy = "none"

	// PolicyQuarantine requests failing messages be treated as suspicious.
	PolicyQuarantine Policy = "quarantine"

	// PolicyReject requests failing messages be rejected.
	PolicyReject Policy = "reject"
)

// Align specifies the identifier alignment mode.
type Align string

const (
	// AlignRelaxed requires the organizational domains to match. Default.
	AlignRelaxed Align = "r"

	// AlignStrict requires exact domain matches.
	AlignStrict Align = "s"
)

// Record is a parsed DMARC DNS TXT record.
//
// Example record:
//
//	v=DMARC1; p=reject; rua=mailto:dmarc@example.com
type Record struct {
	// Version must be "DMARC1".
	Version string

	// Policy is the requested policy for failing messages. Required.
	Policy Policy

	// SubdomainPolicy is the policy for subdomains. If empty, Policy
	// applies.
	SubdomainPolicy Policy

	// AggregateReportAddresses are URIs for aggregate reports (rua tag),
	// typically "mailto:" addresses.
	AggregateReportAddresses []string

	// ADKIM is the DKIM alignment mode. Default relaxed.
	ADKIM Align

	// ASPF is the SPF alignment mode. Default relaxed.
	ASPF Align

	// Percentage of messages the policy applies to, 0-100. Default 100.
	Percentage int
}

// DefaultRecord holds the default values for a DMARC record.
var DefaultRecord = Record{
	Version:    "DMARC1",
	ADKIM:      AlignRelaxed,
	ASPF:       AlignRelaxed,
	Percentage: 100,
}

// String returns the record formatted for a DNS TXT record.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("v=")
	b.WriteString(r.Version)

	write := func(do bool, tag, value string) {
		if do {
			fmt.Fprintf(&b, "; %s=%s", tag, value)
		}
	}

	write(r.Policy != "", "p", string(r.Policy))
	write(r.SubdomainPolicy != "", "sp", string(r.SubdomainPolicy))
	write(len(r.AggregateReportAddresses) > 0, "rua", strings.Join(r.AggregateReportAddresses, ","))
	write(r.ADKIM != AlignRelaxed, "adkim", string(r.ADKIM))
	write(r.ASPF != AlignRelaxed, "aspf", string(r.ASPF))
	write(r.Percentage != 100, "pct", fmt.Sprintf("%d", r.Percentage))

	return b.String()
}

// EffectivePolicy returns the policy that applies to the given scope.
// Subdomains fall back to Policy when no sp tag was published.
func (r *Record) EffectivePolicy(isSubdomain bool) Policy {
	if isSubdomain && r.SubdomainPolicy != PolicyEmpty {
		return r.SubdomainPolicy
	}
	return r.Policy
}
