package shrike

import (
	"github.com/synqronlabs/shrike/dmarc"
	"github.com/synqronlabs/shrike/spf"
)

// SPFPolicy is the parsed view of a domain's published SPF posture.
// Derived from DomainFacts, never persisted.
type SPFPolicy struct {
	// Present reports whether an SPF TXT record was found.
	Present bool

	// Valid reports whether the record parses and contains at least one
	// meaningful mechanism (ip4, ip6, a, mx, include, all).
	Valid bool

	// Raw is the record text as published, kept for display even when
	// malformed.
	Raw string

	// Record is the parsed record, nil when absent or malformed.
	Record *spf.Record
}

// meaningfulMechanisms are the mechanism tokens that make an SPF record
// express an actual policy.
var meaningfulMechanisms = map[string]bool{
	"ip4": true, "ip6": true, "a": true, "mx": true, "include": true, "all": true,
}

// ParseSPFPolicy derives the SPF posture from a raw TXT record. It never
// fails; malformed input yields Valid=false with Raw retained.
func ParseSPFPolicy(raw string) SPFPolicy {
	p := SPFPolicy{Raw: raw, Present: raw != ""}
	if !p.Present {
		return p
	}

	record, isSPF, err := spf.ParseRecord(raw)
	if !isSPF || err != nil {
		return p
	}
	p.Record = record

	for _, m := range record.Mechanisms() {
		if meaningfulMechanisms[m] {
			p.Valid = true
			break
		}
	}
	return p
}

// DMARCPolicy is the parsed view of a domain's published DMARC posture.
// Derived from DomainFacts, never persisted.
type DMARCPolicy struct {
	// Present reports whether a DMARC TXT record was found at
	// _dmarc.<domain>.
	Present bool

	// Valid reports whether the record parses with a policy of none,
	// quarantine or reject.
	Valid bool

	// Raw is the record text as published, kept for display even when
	// malformed.
	Raw string

	// Policy is the requested policy, "" when absent or malformed.
	Policy dmarc.Policy

	// Record is the parsed record, nil when absent or malformed.
	Record *dmarc.Record
}

// ParseDMARCPolicy derives the DMARC posture from a raw TXT record. It
// never fails; malformed input yields Valid=false with Raw retained.
func ParseDMARCPolicy(raw string) DMARCPolicy {
	p := DMARCPolicy{Raw: raw, Present: raw != ""}
	if !p.Present {
		return p
	}

	record, isDMARC, err := dmarc.ParseRecord(raw)
	if !isDMARC || err != nil {
		return p
	}

	p.Record = record
	p.Policy = record.Policy
	p.Valid = p.Policy == dmarc.PolicyNone || p.Policy == dmarc.PolicyQuarantine || p.Policy == dmarc.PolicyReject
	return p
}
