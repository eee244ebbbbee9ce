package shrike

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinylib/msgp/msgp"
)

// MXHost is one mail exchanger of a domain.
type MXHost struct {
	// Pref is the MX preference; lower values are tried first.
	Pref uint16

	// Host is the exchanger hostname without trailing dot.
	Host string
}

// String returns the record in "pref host" display form.
func (m MXHost) String() string {
	return fmt.Sprintf("%d %s", m.Pref, m.Host)
}

// DomainFacts is everything the engine learned about one domain. Facts are
// built once per lookup and never mutated afterwards; the cache shares one
// instance across concurrent requests.
type DomainFacts struct {
	// Domain is the normalized domain the facts belong to.
	Domain string

	// MXHosts are the domain's mail exchangers, sorted by preference
	// ascending. Empty means the domain cannot receive mail.
	MXHosts []MXHost

	// SPFRecord is the raw SPF TXT record, "" if none was found.
	SPFRecord string

	// DMARCRecord is the raw DMARC TXT record at _dmarc.<domain>, "" if
	// none was found.
	DMARCRecord string

	// Disposable reports membership in the disposable-provider list.
	Disposable bool

	// Geo is the display location of the primary mail exchanger, "" when
	// unknown.
	Geo string

	// Resolved is when the lookup completed; drives cache expiry.
	Resolved time.Time
}

// HasMX reports whether the domain has at least one mail exchanger.
func (f *DomainFacts) HasMX() bool {
	return len(f.MXHosts) > 0
}

// MXDisplay returns all MX records in display form, comma-separated,
// "" when the domain has none.
func (f *DomainFacts) MXDisplay() string {
	if len(f.MXHosts) == 0 {
		return ""
	}
	parts := make([]string, len(f.MXHosts))
	for i, mx := range f.MXHosts {
		parts[i] = mx.String()
	}
	return strings.Join(parts, ", ")
}

// Primary returns the highest-priority mail exchanger.
func (f *DomainFacts) Primary() (MXHost, bool) {
	if len(f.MXHosts) == 0 {
		return MXHost{}, false
	}
	return f.MXHosts[0], true
}

// The cache snapshot is a MessagePack stream; facts encode as a fixed
// 7-element array.
const factsFields = 7

var (
	_ msgp.Encodable = (*DomainFacts)(nil)
	_ msgp.Decodable = (*DomainFacts)(nil)
)

// EncodeMsg implements msgp.Encodable.
func (f *DomainFacts) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteArrayHeader(factsFields); err != nil {
		return err
	}
	if err := en.WriteString(f.Domain); err != nil {
		return err
	}
	if err := en.WriteArrayHeader(uint32(len(f.MXHosts))); err != nil {
		return err
	}
	for _, mx := range f.MXHosts {
		if err := en.WriteArrayHeader(2); err != nil {
			return err
		}
		if err := en.WriteUint16(mx.Pref); err != nil {
			return err
		}
		if err := en.WriteString(mx.Host); err != nil {
			return err
		}
	}
	if err := en.WriteString(f.SPFRecord); err != nil {
		return err
	}
	if err := en.WriteString(f.DMARCRecord); err != nil {
		return err
	}
	if err := en.WriteBool(f.Disposable); err != nil {
		return err
	}
	if err := en.WriteString(f.Geo); err != nil {
		return err
	}
	return en.WriteTime(f.Resolved)
}

// DecodeMsg implements msgp.Decodable.
func (f *DomainFacts) DecodeMsg(dc *msgp.Reader) error {
	sz, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	if sz != factsFields {
		return fmt.Errorf("shrike: facts entry has %d fields, want %d", sz, factsFields)
	}

	if f.Domain, err = dc.ReadString(); err != nil {
		return err
	}

	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	f.MXHosts = make([]MXHost, 0, n)
	for range n {
		pair, err := dc.ReadArrayHeader()
		if err != nil {
			return err
		}
		if pair != 2 {
			return fmt.Errorf("shrike: mx entry has %d fields, want 2", pair)
		}
		var mx MXHost
		if mx.Pref, err = dc.ReadUint16(); err != nil {
			return err
		}
		if mx.Host, err = dc.ReadString(); err != nil {
			return err
		}
		f.MXHosts = append(f.MXHosts, mx)
	}

	if f.SPFRecord, err = dc.ReadString(); err != nil {
		return err
	}
	if f.DMARCRecord, err = dc.ReadString(); err != nil {
		return err
	}
	if f.Disposable, err = dc.ReadBool(); err != nil {
		return err
	}
	if f.Geo, err = dc.ReadString(); err != nil {
		return err
	}
	f.Resolved, err = dc.ReadTime()
	return err
}
