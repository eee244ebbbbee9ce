package shrike

// Result is the externally visible outcome of one validation. Field names
// match the wire contract of POST /validate. Immutable once built.
type Result struct {
	Email        string `json:"email"`
	Domain       string `json:"domain"`
	HasMX        bool   `json:"has_mx"`
	HasSPF       bool   `json:"has_spf"`
	HasDMARC     bool   `json:"has_dmarc"`
	MXRecord     string `json:"mx_record"`
	SPFRecord    string `json:"spf_record"`
	DMARCRecord  string `json:"dmarc_record"`
	IsDisposable bool   `json:"is_disposable"`
	IsSafe       bool   `json:"is_safe"`
	Verdict      string `json:"verdict"`
	MXGeo        string `json:"mx_geo"`
}

// geoUnknown is the wire value when the exchanger location could not be
// determined.
const geoUnknown = "Unknown"

// buildResult assembles the response from an address and its domain facts.
func buildResult(addr Address, facts *DomainFacts) *Result {
	spfPolicy := ParseSPFPolicy(facts.SPFRecord)
	dmarcPolicy := ParseDMARCPolicy(facts.DMARCRecord)
	safe, verdict := Aggregate(facts, spfPolicy, dmarcPolicy)

	geo := facts.Geo
	if geo == "" {
		geo = geoUnknown
	}

	return &Result{
		Email:        addr.String(),
		Domain:       addr.Domain,
		HasMX:        facts.HasMX(),
		HasSPF:       spfPolicy.Present,
		HasDMARC:     dmarcPolicy.Present,
		MXRecord:     facts.MXDisplay(),
		SPFRecord:    facts.SPFRecord,
		DMARCRecord:  facts.DMARCRecord,
		IsDisposable: facts.Disposable,
		IsSafe:       safe,
		Verdict:      verdict,
		MXGeo:        geo,
	}
}
