package dmarc

import (
	"fmt"
	"strconv"
	"strings"
)

// parseErr is an internal parsing error.
type parseErr string

func (e parseErr) Error() string {
	return string(e)
}

// ParseRecord parses a DMARC TXT record string.
//
// Fields and values that are case-insensitive in DMARC are returned in
// lower case for easy comparison.
//
// Returns the parsed record, whether the string looks like a DMARC record
// at all (starts with "v=DMARC1"), and any parsing error. A TXT record that
// does not start with "v=DMARC1" is simply not a DMARC record; that is
// reported via isDMARC, not as an error.
func ParseRecord(s string) (record *Record, isDMARC bool, rerr error) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if err, ok := x.(parseErr); ok {
			record = nil
			rerr = fmt.Errorf("%w: %s", ErrSyntax, err)
			return
		}
		panic(x)
	}()

	r := DefaultRecord
	p := newParser(s)

	// v= is required and must be first, with the exact value DMARC1,
	// per RFC 7489 Section 6.3.
	p.wsp()
	if !p.take("v") {
		return nil, false, nil
	}
	p.wsp()
	if !p.take("=") {
		return nil, false, nil
	}
	p.wsp()
	if !strings.HasPrefix(p.s[p.o:], "DMARC1") {
		return nil, false, nil
	}
	p.o += len("DMARC1")
	isDMARC = true
	p.wsp()
	p.xtake(";")

	seen := map[string]bool{}

	for {
		p.wsp()
		if p.empty() {
			break
		}

		tagName := p.xword()
		tag := strings.ToLower(tagName)

		if seen[tag] {
			// Duplicates can only cause confusion, reject them.
			p.xerrorf("duplicate tag %q", tagName)
		}
		seen[tag] = true

		p.wsp()
		p.xtake("=")
		p.wsp()

		switch tag {
		case "p":
			// Policy must directly follow the version tag per
			// RFC 7489 Section 6.3.
			if len(seen) != 1 {
				p.xerrorf("p= (policy) must be the first tag")
			}
			r.Policy = Policy(p.xtakelist("none", "quarantine", "reject"))

		case "sp":
			r.SubdomainPolicy = Policy(p.xword())
			// Validated after all tags are read.

		case "rua":
			r.AggregateReportAddresses = append(r.AggregateReportAddresses, p.xuri())
			p.wsp()
			for p.take(",") {
				p.wsp()
				r.AggregateReportAddresses = append(r.AggregateReportAddresses, p.xuri())
				p.wsp()
			}

		case "adkim":
			r.ADKIM = Align(p.xtakelist("r", "s"))

		case "aspf":
			r.ASPF = Align(p.xtakelist("r", "s"))

		case "pct":
			r.Percentage = p.xnumber()
			if r.Percentage > 100 {
				p.xerrorf("bad percentage %d", r.Percentage)
			}

		default:
			// Unknown tags (ruf, ri, fo, rf, future extensions) are
			// consumed up to the next semicolon.
			for !p.empty() && !p.peek(';') {
				p.o++
			}
		}

		p.wsp()
		if !p.take(";") && !p.empty() {
			p.xerrorf("expected ;")
		}
	}

	// Per RFC 7489 Section 6.6.3, a missing or invalid policy with a
	// valid rua= address is treated as p=none.
	sp := r.SubdomainPolicy
	if !seen["p"] || sp != PolicyEmpty && sp != PolicyNone && sp != PolicyQuarantine && sp != PolicyReject {
		if len(r.AggregateReportAddresses) > 0 {
			r.Policy = PolicyNone
			r.SubdomainPolicy = PolicyEmpty
		} else {
			p.xerrorf("invalid (subdomain)policy and no valid aggregate reporting address")
		}
	}

	return &r, true, nil
}

// parser holds state for parsing DMARC records.
type parser struct {
	s     string // Original string.
	lower string // Lower-cased for case-insensitive matching.
	o     int    // Current offset.
}

// toLower lower-cases ASCII A-Z without touching other bytes.
func toLower(s string) string {
	r := []byte(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + 0x20
		}
	}
	return string(r)
}

func newParser(s string) *parser {
	return &parser{s: s, lower: toLower(s)}
}

func (p *parser) xerrorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.o < len(p.s) {
		msg += fmt.Sprintf(" (remain %q)", p.s[p.o:])
	}
	panic(parseErr(msg))
}

func (p *parser) empty() bool {
	return p.o >= len(p.s)
}

func (p *parser) peek(b byte) bool {
	return p.o < len(p.s) && p.s[p.o] == b
}

// take consumes s if the remaining input starts with it (case-insensitive).
func (p *parser) take(s string) bool {
	if strings.HasPrefix(p.lower[p.o:], s) {
		p.o += len(s)
		return true
	}
	return false
}

func (p *parser) xtake(s string) {
	if !p.take(s) {
		p.xerrorf("expected %q", s)
	}
}

// wsp consumes optional whitespace.
func (p *parser) wsp() {
	for !p.empty() && (p.s[p.o] == ' ' || p.s[p.o] == '\t') {
		p.o++
	}
}

// xtakelist takes one of the strings in the list.
func (p *parser) xtakelist(l ...string) string {
	for _, s := range l {
		if p.take(s) {
			return s
		}
	}
	p.xerrorf("expected one of %v", l)
	panic("not reached")
}

// xtakefn1 takes one or more leading bytes matching fn, returned lower-cased.
func (p *parser) xtakefn1(fn func(byte) bool) string {
	i := 0
	for p.o+i < len(p.s) && fn(p.lower[p.o+i]) {
		i++
	}
	if i == 0 {
		p.xerrorf("expected at least one character")
	}
	r := p.lower[p.o : p.o+i]
	p.o += i
	return r
}

// xword parses a tag name (alphanumeric).
func (p *parser) xword() string {
	return p.xtakefn1(func(c byte) bool {
		return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
	})
}

// xnumber parses a decimal number.
func (p *parser) xnumber() int {
	digits := p.xtakefn1(func(c byte) bool {
		return c >= '0' && c <= '9'
	})
	v, err := strconv.Atoi(digits)
	if err != nil {
		p.xerrorf("parsing %q: %s", digits, err)
	}
	return v
}

// xuri parses a report URI (rua value), up to the next comma, semicolon or
// whitespace. The original case is preserved.
func (p *parser) xuri() string {
	i := 0
	for p.o+i < len(p.s) {
		b := p.s[p.o+i]
		if b == ',' || b == ';' || b == ' ' || b == '\t' {
			break
		}
		i++
	}
	if i == 0 {
		p.xerrorf("expected report uri")
	}
	v := p.s[p.o : p.o+i]
	p.o += i
	if !strings.Contains(v, ":") {
		p.xerrorf("missing scheme in uri %q", v)
	}
	return v
}
