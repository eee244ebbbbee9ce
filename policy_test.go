package shrike

import (
	"testing"

	"github.com/synqronlabs/shrike/dmarc"
)

// Policy derivation never fails, no matter how mangled the published
// record is.
func TestParseSPFPolicy(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		present bool
		valid   bool
	}{
		{name: "absent", raw: "", present: false, valid: false},
		{name: "minimal", raw: "v=spf1 -all", present: true, valid: true},
		{name: "full", raw: "v=spf1 ip4:192.0.2.0/24 include:_spf.example.net mx ~all", present: true, valid: true},
		{name: "version only", raw: "v=spf1", present: true, valid: false},
		{name: "modifiers only", raw: "v=spf1 redirect=example.net", present: true, valid: false},
		{name: "wrong version", raw: "v=spf2 -all", present: true, valid: false},
		{name: "garbage", raw: "definitely not spf", present: true, valid: false},
		{name: "bad cidr", raw: "v=spf1 ip4:192.0.2.1/99 -all", present: true, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseSPFPolicy(tt.raw)
			if p.Present != tt.present {
				t.Errorf("Present = %v, want %v", p.Present, tt.present)
			}
			if p.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", p.Valid, tt.valid)
			}
			if p.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", p.Raw, tt.raw)
			}
		})
	}
}

func TestParseDMARCPolicy(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		present bool
		valid   bool
		policy  dmarc.Policy
	}{
		{name: "absent", raw: "", present: false},
		{name: "none", raw: "v=DMARC1; p=none", present: true, valid: true, policy: dmarc.PolicyNone},
		{name: "quarantine", raw: "v=DMARC1; p=quarantine; pct=50", present: true, valid: true, policy: dmarc.PolicyQuarantine},
		{name: "reject", raw: "v=DMARC1; p=reject; rua=mailto:d@example.com", present: true, valid: true, policy: dmarc.PolicyReject},
		{name: "lowercase version tag", raw: "v=dmarc1; p=reject", present: true, valid: false},
		{name: "missing policy with rua falls back to none", raw: "v=DMARC1; rua=mailto:d@example.com", present: true, valid: true, policy: dmarc.PolicyNone},
		{name: "missing policy without rua", raw: "v=DMARC1; adkim=s", present: true, valid: false},
		{name: "garbage", raw: "not a dmarc record", present: true, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseDMARCPolicy(tt.raw)
			if p.Present != tt.present {
				t.Errorf("Present = %v, want %v", p.Present, tt.present)
			}
			if p.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", p.Valid, tt.valid)
			}
			if p.Policy != tt.policy {
				t.Errorf("Policy = %q, want %q", p.Policy, tt.policy)
			}
		})
	}
}
