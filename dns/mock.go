package dns

import (
	"context"
	"net"
	"slices"
	"sync"
)

// MockResolver is a Resolver for tests. Set DNS records in the fields,
// which map FQDNs (with trailing dot) to values.
//
// Every lookup is counted, so tests can assert how many queries an
// operation issued (e.g. that a cached validation performs none).
type MockResolver struct {
	TXT map[string][]string
	MX  map[string][]*net.MX
	A   map[string][]string

	// Fail contains records that return ErrServFail.
	// Format: "type name", e.g. "txt example.com." with type lowercase.
	Fail []string

	// Down makes every lookup fail with ErrServFail, simulating a total
	// upstream outage.
	Down bool

	mu     sync.Mutex
	counts map[string]int
}

var _ Resolver = (*MockResolver)(nil)

// mockReq identifies one mock lookup, e.g. "txt example.com.".
type mockReq struct {
	Type string
	Name string
}

func (mr mockReq) String() string {
	return mr.Type + " " + mr.Name
}

// ensureFQDN ensures the name ends with a dot.
func ensureFQDN(name string) string {
	if len(name) == 0 || name[len(name)-1] != '.' {
		return name + "."
	}
	return name
}

// record counts the request and checks for configured failures.
func (r *MockResolver) record(ctx context.Context, mr mockReq) error {
	r.mu.Lock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[mr.String()]++
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Down || slices.Contains(r.Fail, mr.String()) {
		return ErrServFail
	}
	return nil
}

// QueryCount returns how often the given query was issued.
// qtype is lowercase ("txt", "mx", "a"); name need not be absolute.
func (r *MockResolver) QueryCount(qtype, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[mockReq{qtype, ensureFQDN(name)}.String()]
}

// Calls returns the total number of lookups issued.
func (r *MockResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

// LookupMX returns the configured MX records.
func (r *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	fqdn := ensureFQDN(name)
	if err := r.record(ctx, mockReq{"mx", fqdn}); err != nil {
		return nil, err
	}

	records, ok := r.MX[fqdn]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// LookupTXT returns the configured TXT records.
func (r *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	fqdn := ensureFQDN(name)
	if err := r.record(ctx, mockReq{"txt", fqdn}); err != nil {
		return nil, err
	}

	records, ok := r.TXT[fqdn]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// LookupIP returns the configured A records as IPs.
func (r *MockResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	fqdn := ensureFQDN(host)
	if err := r.record(ctx, mockReq{"a", fqdn}); err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, s := range r.A[fqdn] {
		if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, ErrNotFound
	}
	return ips, nil
}
