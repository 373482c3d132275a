package classify

import (
	"errors"
	"testing"

	"github.com/leadsieve/leadsieve/internal/refdata"
)

func testRefs() *refdata.Store {
	return &refdata.Store{
		AcademicDomains:      refdata.NewSet("tum.de", "ox.ac.uk"),
		ExcludedDomains:      refdata.NewSet("arrow.com"),
		DirectAccounts:       refdata.NewSet("MegaCorp Industries"),
		BlacklistedCountries: refdata.NewSet("Narnia"),
		FreemailDomains:      refdata.NewSet("gmail.com", "web.de"),
		Institutions: map[string]*refdata.Set{
			"turkey": refdata.NewSet("ankara university"),
		},
	}
}

func TestValidateDomain(t *testing.T) {
	v := NewDomainValidator(testRefs())

	tests := []struct {
		name    string
		email   string
		company string
		want    DomainMatch
	}{
		{"matching company and domain", "alice@acme.com", "Acme Corp", MatchValid},
		{"free mailer", "bob@gmail.com", "Acme Corp", MatchFreeMailer},
		{"excluded domain", "carol@arrow.com", "Acme Corp", MatchExcludedDomain},
		{"mismatch", "dave@unrelated.io", "Acme Corp", MatchMismatch},
		{"no email domain", "not-an-email", "Acme Corp", MatchNoEmailDomain},
		{"no company", "alice@acme.com", "", MatchNoCompanyName},
		{"freemail subdomain", "bob@mail.gmail.com", "Acme", MatchFreeMailer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateDomain(tt.email, tt.company)
			if got.Match != tt.want {
				t.Errorf("ValidateDomain(%q, %q) = %v (%s), want %v",
					tt.email, tt.company, got.Match, got.Reason, tt.want)
			}
			if got.Reason == "" {
				t.Error("verdict should carry a reason")
			}
		})
	}
}

func TestValidateDomainSimilarityBands(t *testing.T) {
	v := NewDomainValidator(testRefs())

	got := v.ValidateDomain("info@acmegroup.com", "Acme")
	if got.Match != MatchValid {
		t.Errorf("substring relation should be a valid match, got %v (sim %.2f)", got.Match, got.Similarity)
	}
}

func TestDetectUniversity(t *testing.T) {
	d := NewUniversityDetector(testRefs(), nil)

	tests := []struct {
		name     string
		company  string
		email    string
		country  string
		academic bool
		minConf  Confidence
	}{
		{"known academic domain", "TU München", "x@in.tum.de", "Germany", true, ConfidenceHigh},
		{"direct account", "MegaCorp Industries", "x@megacorp.com", "", false, ConfidenceHigh},
		{"academic keyword", "Technische Universität München", "", "Germany", true, ConfidenceMedium},
		{"commercial name", "Nexus Quantum Engineering GmbH", "", "", false, ConfidenceMedium},
		{"known institution for country", "Ankara University Dept. of Physics", "", "Turkey", true, ConfidenceHigh},
		{"academic domain shape", "Somewhere", "x@cs.ox.ac.uk", "", true, ConfidenceHigh},
		{"mixed signals lean commercial", "University Consulting GmbH", "", "", false, ConfidenceMedium},
		{"no signals", "Blue Falcon Logistics", "", "", false, ConfidenceHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.company, tt.email, tt.country)
			if got.Academic != tt.academic {
				t.Fatalf("Detect(%q) academic = %v (%s), want %v",
					tt.company, got.Academic, got.Reason, tt.academic)
			}
			if confRank(got.Confidence) < confRank(tt.minConf) {
				t.Errorf("Detect(%q) confidence = %v, want at least %v",
					tt.company, got.Confidence, tt.minConf)
			}
		})
	}
}

func confRank(c Confidence) int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

type stubChecker struct {
	academic bool
	err      error
	calls    int
}

func (s *stubChecker) LooksAcademic(domain string) (bool, error) {
	s.calls++
	return s.academic, s.err
}

func TestDetectWebCheck(t *testing.T) {
	t.Run("last resort academic hit is low confidence", func(t *testing.T) {
		chk := &stubChecker{academic: true}
		d := NewUniversityDetector(testRefs(), chk)
		got := d.Detect("Sorbonne", "x@sorbonne.fr", "")
		if !got.Academic || got.Confidence != ConfidenceLow {
			t.Errorf("got %+v, want low-confidence academic", got)
		}
		if chk.calls != 1 {
			t.Errorf("checker called %d times", chk.calls)
		}
	})

	t.Run("no evidence falls back to not academic", func(t *testing.T) {
		d := NewUniversityDetector(testRefs(), &stubChecker{academic: false})
		got := d.Detect("Sorbonne", "x@sorbonne.fr", "")
		if got.Academic || got.Confidence != ConfidenceHigh {
			t.Errorf("got %+v, want the not-academic default", got)
		}
	})

	t.Run("lookup failure is swallowed", func(t *testing.T) {
		d := NewUniversityDetector(testRefs(), &stubChecker{academic: true, err: errStub})
		if got := d.Detect("Sorbonne", "x@sorbonne.fr", ""); got.Academic {
			t.Errorf("got %+v, want not academic on lookup failure", got)
		}
	})

	t.Run("not consulted when a name rule matched", func(t *testing.T) {
		chk := &stubChecker{academic: false}
		d := NewUniversityDetector(testRefs(), chk)
		if got := d.Detect("Universidad del Sur", "x@delsur.ar", ""); !got.Academic {
			t.Errorf("got %+v, want academic by keyword", got)
		}
		if chk.calls != 0 {
			t.Errorf("checker called %d times after a keyword match", chk.calls)
		}
	})

	t.Run("not consulted for freemail domains", func(t *testing.T) {
		chk := &stubChecker{academic: true}
		d := NewUniversityDetector(testRefs(), chk)
		if got := d.Detect("Blue Falcon Logistics", "x@gmail.com", ""); got.Academic {
			t.Errorf("got %+v, want not academic", got)
		}
		if chk.calls != 0 {
			t.Errorf("checker called %d times for a freemail domain", chk.calls)
		}
	})
}

var errStub = errors.New("lookup failed")

func TestClassify(t *testing.T) {
	c := NewClassifier(testRefs(), nil)

	tests := []struct {
		name string
		lead Lead
		want Status
	}{
		{"blacklisted country wins first", Lead{Email: "x@tum.de", Company: "Acme", Country: "Narnia"}, StatusBlacklistedCountry},
		{"direct account before domain checks", Lead{Email: "x@arrow.com", Company: "MegaCorp Industries"}, StatusDirectAccount},
		{"excluded domain", Lead{Email: "x@arrow.com", Company: "Acme"}, StatusExcludedDomain},
		{"academic domain", Lead{Email: "x@tum.de", Company: "Acme"}, StatusAcademic},
		{"freemail", Lead{Email: "x@gmail.com", Company: "Acme"}, StatusFreemail},
		{"academic by name", Lead{Email: "x@acme.com", Company: "Ankara University", Country: "Turkey"}, StatusAcademic},
		{"clean lead is valid", Lead{Email: "x@acme.com", Company: "Acme"}, StatusValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.lead)
			if got.Status != tt.want {
				t.Errorf("Classify(%+v) = %v (%s), want %v", tt.lead, got.Status, got.Reason, tt.want)
			}
		})
	}
}

func TestClassifyProtectedStatus(t *testing.T) {
	c := NewClassifier(testRefs(), nil)

	// A lead that would otherwise reclassify as freemail keeps its
	// protected status.
	lead := Lead{Email: "x@gmail.com", Company: "Acme", Status: StatusCompleted}
	if got := c.Classify(lead); got.Status != StatusCompleted {
		t.Errorf("protected status overwritten: %v", got.Status)
	}

	// Valid is not protected and may change when inputs change.
	lead = Lead{Email: "x@gmail.com", Company: "Acme", Status: StatusValid}
	if got := c.Classify(lead); got.Status != StatusFreemail {
		t.Errorf("unprotected status should reclassify, got %v", got.Status)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := NewClassifier(testRefs(), nil)

	leads := []Lead{
		{Email: "x@acme.com", Company: "Acme"},
		{Email: "x@gmail.com", Company: "Acme"},
		{Email: "x@acme.com", Company: "Ankara University", Country: "Turkey"},
	}
	for _, lead := range leads {
		first := c.Classify(lead)
		lead.Status = first.Status
		second := c.Classify(lead)
		if second.Status != first.Status {
			t.Errorf("re-classification changed %v to %v", first.Status, second.Status)
		}
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name    string
		company string
		want    []string
	}{
		{
			"suffixes dropped and prefixes deduped",
			"Advanced Microsystems Engineering Group GmbH & Co. KG",
			[]string{
				"Advanced Microsystems Engineering",
				"Advanced Microsystems",
				"Advanced",
			},
		},
		{
			"brackets and punctuation removed",
			"Acme (EMEA), Ltd.",
			[]string{"Acme EMEA", "Acme"},
		},
		{"empty", "", nil},
		{"only suffixes", "GmbH & Co. KG", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(tt.company)
			if len(got) != len(tt.want) {
				t.Fatalf("Candidates(%q) = %q, want %q", tt.company, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCandidatesTruncation(t *testing.T) {
	long := "Extraordinarily Long Company Name That Keeps Going And Going Forever"
	for _, c := range Candidates(long) {
		if len(c) > MaxCandidateLen {
			t.Errorf("candidate %q exceeds %d characters", c, MaxCandidateLen)
		}
	}
}
