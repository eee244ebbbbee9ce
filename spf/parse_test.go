package spf

import (
	"errors"
	"testing"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		isSPF      bool
		wantErr    bool
		mechanisms []string
		redirect   string
	}{
		{
			name:       "simple",
			in:         "v=spf1 mx -all",
			isSPF:      true,
			mechanisms: []string{"mx", "all"},
		},
		{
			name:       "include with softfail all",
			in:         "v=spf1 include:_spf.example.com ~all",
			isSPF:      true,
			mechanisms: []string{"include", "all"},
		},
		{
			name:       "ip4 with prefix",
			in:         "v=spf1 ip4:192.0.2.0/24 ip6:2001:db8::/32 -all",
			isSPF:      true,
			mechanisms: []string{"ip4", "ip6", "all"},
		},
		{
			name:       "qualifiers",
			in:         "v=spf1 +a ?mx ~include:x.example -all",
			isSPF:      true,
			mechanisms: []string{"a", "mx", "include", "all"},
		},
		{
			name:       "a with domain and cidr",
			in:         "v=spf1 a:colo.example.com/28 -all",
			isSPF:      true,
			mechanisms: []string{"a", "all"},
		},
		{
			name:     "redirect only",
			in:       "v=spf1 redirect=_spf.example.com",
			isSPF:    true,
			redirect: "_spf.example.com",
		},
		{
			name:       "case insensitive",
			in:         "V=SPF1 MX -ALL",
			isSPF:      true,
			mechanisms: []string{"mx", "all"},
		},
		{
			name:       "exists with macro",
			in:         "v=spf1 exists:%{i}.spf.example.com -all",
			isSPF:      true,
			mechanisms: []string{"exists", "all"},
		},
		{
			name:  "version only",
			in:    "v=spf1",
			isSPF: true,
		},
		{
			name:  "not an SPF record",
			in:    "google-site-verification=abc123",
			isSPF: false,
		},
		{
			name:  "empty",
			in:    "",
			isSPF: false,
		},
		{
			name:  "spf1 prefix of other version",
			in:    "v=spf10 mx -all",
			isSPF: false,
		},
		{
			name:    "qualifier without mechanism",
			in:      "v=spf1 - all",
			isSPF:   true,
			wantErr: true,
		},
		{
			name:    "bad ip4 address",
			in:      "v=spf1 ip4:999.1.1.1 -all",
			isSPF:   true,
			wantErr: true,
		},
		{
			name:    "ip6 address in ip4 mechanism",
			in:      "v=spf1 ip4:2001:db8::1 -all",
			isSPF:   true,
			wantErr: true,
		},
		{
			name:    "cidr out of range",
			in:      "v=spf1 ip4:192.0.2.0/64 -all",
			isSPF:   true,
			wantErr: true,
		},
		{
			name:    "duplicate redirect",
			in:      "v=spf1 redirect=a.example redirect=b.example",
			isSPF:   true,
			wantErr: true,
		},
		{
			name:    "garbage term",
			in:      "v=spf1 `!@#",
			isSPF:   true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, isSPF, err := ParseRecord(tt.in)

			if isSPF != tt.isSPF {
				t.Fatalf("isSPF = %v, want %v", isSPF, tt.isSPF)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got record %+v", r)
				}
				if !errors.Is(err, ErrSyntax) {
					t.Errorf("error %v does not wrap ErrSyntax", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.isSPF {
				return
			}

			got := r.Mechanisms()
			if len(got) != len(tt.mechanisms) {
				t.Fatalf("mechanisms = %v, want %v", got, tt.mechanisms)
			}
			for i := range got {
				if got[i] != tt.mechanisms[i] {
					t.Fatalf("mechanisms = %v, want %v", got, tt.mechanisms)
				}
			}
			if r.Redirect != tt.redirect {
				t.Errorf("redirect = %q, want %q", r.Redirect, tt.redirect)
			}
		})
	}
}

func TestParseRecordDetails(t *testing.T) {
	r, isSPF, err := ParseRecord("v=spf1 ip4:192.0.2.0/24 include:_spf.example.com ~all")
	if err != nil || !isSPF {
		t.Fatalf("ParseRecord: isSPF=%v err=%v", isSPF, err)
	}

	if len(r.Directives) != 3 {
		t.Fatalf("got %d directives, want 3", len(r.Directives))
	}

	ip4 := r.Directives[0]
	if ip4.IP.String() != "192.0.2.0" || ip4.CIDRLen != 24 {
		t.Errorf("ip4 directive = %+v", ip4)
	}

	inc := r.Directives[1]
	if inc.DomainSpec != "_spf.example.com" {
		t.Errorf("include domain = %q", inc.DomainSpec)
	}

	all := r.Directives[2]
	if all.Qualifier != "~" || all.Mechanism != "all" {
		t.Errorf("all directive = %+v", all)
	}
}

func TestRecordString(t *testing.T) {
	in := "v=spf1 ip4:192.0.2.0/24 include:_spf.example.com ~all"
	r, _, err := ParseRecord(in)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if got := r.String(); got != in {
		t.Errorf("String() = %q, want %q", got, in)
	}
}

func TestParseRecordNeverPanics(t *testing.T) {
	inputs := []string{
		"v=spf1 ip4:",
		"v=spf1 include:",
		"v=spf1 a/",
		"v=spf1 =",
		"v=spf1  ",
		"v=spf1 redirect=",
		"v=spf1 \x00",
	}
	for _, in := range inputs {
		// Must return an error (or parse), never panic.
		_, _, _ = ParseRecord(in)
	}
}
