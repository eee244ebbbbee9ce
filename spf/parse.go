package spf

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parseError is a recoverable parsing error.
type parseError string

func (e parseError) Error() string {
	return string(e)
}

// ParseRecord parses an SPF DNS TXT record.
//
// Returns the parsed record, whether the input looks like an SPF record at
// all (starts with "v=spf1"), and any parsing error. A TXT record that does
// not start with "v=spf1" is simply not an SPF record; that is reported via
// isSPF, not as an error.
func ParseRecord(s string) (r *Record, isSPF bool, err error) {
	p := parser{s: s, lower: toLower(s)}

	r = &Record{Version: "spf1"}

	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if perr, ok := x.(parseError); ok {
			r = nil
			err = fmt.Errorf("%w: %s", ErrSyntax, perr)
			return
		}
		panic(x)
	}()

	if !p.take("v=spf1") {
		return nil, false, nil
	}
	isSPF = true

	if !p.empty() && !p.peekSpace() {
		// e.g. "v=spf10" or "v=spf1x"
		return nil, false, nil
	}

	for !p.empty() {
		if !p.take(" ") {
			p.xerrorf("expected space between terms")
		}
		for p.take(" ") {
		}
		if p.empty() {
			break
		}

		qualifier := p.takelist("+", "-", "?", "~")
		mechanism := p.takelist("all", "include", "ip4", "ip6", "exists", "ptr", "a", "mx")

		// "a" must not swallow the leading letters of an unknown word
		// such as "allow=x".
		if mechanism != "" && !p.empty() && !p.peekAny(" :/") {
			p.o -= len(mechanism)
			mechanism = ""
		}

		if mechanism == "" {
			if qualifier != "" {
				p.xerrorf("expected mechanism after qualifier %q", qualifier)
			}
			p.parseModifier(r)
			continue
		}

		d := Directive{
			Qualifier: qualifier,
			Mechanism: mechanism,
			CIDRLen:   -1,
		}

		switch mechanism {
		case "all":
			// No parameters.

		case "include", "exists":
			p.xtake(":")
			d.DomainSpec = p.xtoken()

		case "a", "mx", "ptr":
			if p.take(":") {
				d.DomainSpec = p.xtokenUntil("/")
			}
			if p.take("/") {
				d.CIDRLen = p.xcidr(32)
			}

		case "ip4":
			p.xtake(":")
			addr := p.xtokenUntil("/")
			ip := net.ParseIP(addr)
			if ip == nil || ip.To4() == nil {
				p.xerrorf("invalid IPv4 address %q", addr)
			}
			d.IP = ip
			if p.take("/") {
				d.CIDRLen = p.xcidr(32)
			}

		case "ip6":
			p.xtake(":")
			addr := p.xtokenUntil("/")
			ip := net.ParseIP(addr)
			if ip == nil || ip.To4() != nil {
				p.xerrorf("invalid IPv6 address %q", addr)
			}
			d.IP = ip
			if p.take("/") {
				d.CIDRLen = p.xcidr(128)
			}
		}

		r.Directives = append(r.Directives, d)
	}

	return r, true, nil
}

// parseModifier parses a "name=value" modifier term.
func (p *parser) parseModifier(r *Record) {
	name := p.xtakefn1(func(c byte, i int) bool {
		alpha := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		return alpha || i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.')
	})
	p.xtake("=")
	value := p.token()

	switch strings.ToLower(name) {
	case "redirect":
		if r.Redirect != "" {
			p.xerrorf("duplicate redirect modifier")
		}
		if value == "" {
			p.xerrorf("redirect requires a domain")
		}
		r.Redirect = value
	case "exp":
		if r.Explanation != "" {
			p.xerrorf("duplicate exp modifier")
		}
		if value == "" {
			p.xerrorf("exp requires a domain")
		}
		r.Explanation = value
	default:
		r.Other = append(r.Other, Modifier{name, value})
	}
}

// parser holds the state for parsing a record.
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

func (p *parser) xerrorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !p.empty() {
		msg += fmt.Sprintf(" (remaining %q)", p.s[p.o:])
	}
	panic(parseError(msg))
}

func (p *parser) empty() bool {
	return p.o >= len(p.s)
}

func (p *parser) peekSpace() bool {
	return !p.empty() && p.s[p.o] == ' '
}

// peekAny reports whether the next byte is one of chars.
func (p *parser) peekAny(chars string) bool {
	return !p.empty() && strings.IndexByte(chars, p.s[p.o]) >= 0
}

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

func (p *parser) takelist(l ...string) string {
	for _, w := range l {
		if p.take(w) {
			return w
		}
	}
	return ""
}

// xtakefn1 takes one or more leading bytes matching fn.
func (p *parser) xtakefn1(fn func(byte, int) bool) string {
	i := 0
	for p.o+i < len(p.s) && fn(p.s[p.o+i], i) {
		i++
	}
	if i == 0 {
		p.xerrorf("expected at least one character")
	}
	r := p.s[p.o : p.o+i]
	p.o += i
	return r
}

// token takes zero or more bytes up to the next space.
func (p *parser) token() string {
	i := strings.IndexByte(p.s[p.o:], ' ')
	if i < 0 {
		i = len(p.s) - p.o
	}
	r := p.s[p.o : p.o+i]
	p.o += i
	return r
}

// xtoken takes one or more bytes up to the next space.
func (p *parser) xtoken() string {
	r := p.token()
	if r == "" {
		p.xerrorf("expected a value")
	}
	return r
}

// xtokenUntil takes one or more bytes up to the next space or any byte in
// stop.
func (p *parser) xtokenUntil(stop string) string {
	return p.xtakefn1(func(c byte, _ int) bool {
		return c != ' ' && strings.IndexByte(stop, c) < 0
	})
}

// xcidr parses a CIDR prefix length bounded by max.
func (p *parser) xcidr(max int) int {
	digits := p.xtakefn1(func(c byte, _ int) bool {
		return c >= '0' && c <= '9'
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n > max {
		p.xerrorf("%s: prefix length %q out of range", ErrInvalidCIDR, digits)
	}
	return n
}
