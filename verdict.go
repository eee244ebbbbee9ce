package shrike

// The verdict is decided by an ordered rule table, first match wins, so
// precedence stays auditable: unreachable and disposable domains are
// unsafe no matter what else holds, while missing anti-spoofing records
// are advisory only and never flip a domain to unsafe on their own.

type verdictRule struct {
	name    string
	match   func(*DomainFacts, SPFPolicy, DMARCPolicy) bool
	safe    bool
	verdict func(*DomainFacts, SPFPolicy, DMARCPolicy) string
}

func staticVerdict(s string) func(*DomainFacts, SPFPolicy, DMARCPolicy) string {
	return func(*DomainFacts, SPFPolicy, DMARCPolicy) string { return s }
}

var verdictRules = []verdictRule{
	{
		name: "no-mx",
		match: func(f *DomainFacts, _ SPFPolicy, _ DMARCPolicy) bool {
			return !f.HasMX()
		},
		safe:    false,
		verdict: staticVerdict("Domain cannot receive email (no MX records)"),
	},
	{
		name: "disposable",
		match: func(f *DomainFacts, _ SPFPolicy, _ DMARCPolicy) bool {
			return f.Disposable
		},
		safe:    false,
		verdict: staticVerdict("Disposable/temporary email domain detected"),
	},
	{
		name: "weak-protection",
		match: func(_ *DomainFacts, s SPFPolicy, d DMARCPolicy) bool {
			return !s.Present || !d.Present
		},
		safe: true,
		verdict: func(_ *DomainFacts, s SPFPolicy, d DMARCPolicy) string {
			missing := "SPF and DMARC"
			switch {
			case s.Present:
				missing = "DMARC"
			case d.Present:
				missing = "SPF"
			}
			return "Email domain accepts mail but has weak anti-spoofing protection (missing " + missing + ")"
		},
	},
	{
		name:    "secure",
		match:   func(*DomainFacts, SPFPolicy, DMARCPolicy) bool { return true },
		safe:    true,
		verdict: staticVerdict("Email domain appears valid and secure"),
	},
}

// Aggregate folds domain facts and parsed policies into the safety flag
// and human-readable verdict.
func Aggregate(f *DomainFacts, spfPolicy SPFPolicy, dmarcPolicy DMARCPolicy) (safe bool, verdict string) {
	for _, rule := range verdictRules {
		if rule.match(f, spfPolicy, dmarcPolicy) {
			return rule.safe, rule.verdict(f, spfPolicy, dmarcPolicy)
		}
	}
	// The table ends with a catch-all rule.
	panic("shrike: no verdict rule matched")
}
