package mailbox

import (
	"testing"
	"time"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pre-MQL ready for review: Acme", "pre-mql ready for review: acme"},
		{"RE: Pre-MQL ready for review: Acme", "pre-mql ready for review: acme"},
		{"Fwd: RE: Pre-MQL ready for review: Acme", "pre-mql ready for review: acme"},
		{"  FW: subject  ", "subject"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSubject(tt.in); got != tt.want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSameMessage(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	want := MoveRequest{Subject: "Pre-MQL ready: Acme", ReceivedAt: base}

	tests := []struct {
		name     string
		subject  string
		received time.Time
		match    bool
	}{
		{"exact", "Pre-MQL ready: Acme", base, true},
		{"reply prefix", "RE: Pre-MQL ready: Acme", base.Add(2 * time.Minute), true},
		{"within tolerance", "Pre-MQL ready: Acme", base.Add(4 * time.Minute), true},
		{"same day outside tolerance", "Pre-MQL ready: Acme", base.Add(6 * time.Hour), true},
		{"different day", "Pre-MQL ready: Acme", base.AddDate(0, 0, 2), false},
		{"different subject", "Something else", base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameMessage(tt.subject, tt.received, want); got != tt.match {
				t.Errorf("sameMessage = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestSameMessageZeroTime(t *testing.T) {
	want := MoveRequest{Subject: "Pre-MQL ready: Acme"}
	if !sameMessage("pre-mql ready: acme", time.Now(), want) {
		t.Error("zero wanted time should match on subject alone")
	}
}

func TestSubjectMatches(t *testing.T) {
	filters := []string{"Pre-MQL ready for review", "Pre-MQL ready for validation"}
	tests := []struct {
		subject string
		want    bool
	}{
		{"Pre-MQL ready for review: Acme GmbH", true},
		{"pre-mql READY FOR VALIDATION: Beta", true},
		{"Weekly newsletter", false},
	}
	for _, tt := range tests {
		if got := subjectMatches(tt.subject, filters); got != tt.want {
			t.Errorf("subjectMatches(%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}
