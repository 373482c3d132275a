package refdata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "academic_domains.csv", "Option Values\ntum.de\nox.ac.uk\n")
	writeFile(t, dir, "excluded_domains.csv", "Option Values,Display Name\narrow.com,Arrow Electronics\n")
	writeFile(t, dir, "direct_accounts.csv", "Option Values\nMegaCorp Industries\n\nMegaCorp Industries\n")
	writeFile(t, dir, "blacklisted_countries.csv", "Option Values\nNarnia\n")
	writeFile(t, dir, "institutions_germany.csv", "Option Values\ntechnische universitat munchen\n")

	st, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if !st.AcademicDomains.Contains("TUM.de") {
		t.Error("academic domain lookup should be case-insensitive")
	}
	if !st.ExcludedDomains.Contains("arrow.com") {
		t.Error("excluded domain missing")
	}
	if got := st.ExcludedDomains.DisplayName("ARROW.com"); got != "Arrow Electronics" {
		t.Errorf("DisplayName = %q", got)
	}
	if st.DirectAccounts.Len() != 1 {
		t.Errorf("direct accounts should dedupe, got %d entries", st.DirectAccounts.Len())
	}
	if !st.BlacklistedCountries.Contains("narnia") {
		t.Error("blacklisted country missing")
	}

	// No freemail file was written; the built-in fallback must kick in.
	if !st.FreemailDomains.Contains("gmail.com") {
		t.Error("freemail fallback not applied")
	}

	inst := st.InstitutionsFor("Germany")
	if inst == nil || !inst.Contains("technische universitat munchen") {
		t.Error("per-country institutions not loaded")
	}
	if st.InstitutionsFor("France") != nil {
		t.Error("unknown country should return nil")
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestContainsDomainSuffix(t *testing.T) {
	s := NewSet("acme.com", "ac.uk")
	tests := []struct {
		domain string
		want   bool
	}{
		{"acme.com", true},
		{"mail.acme.com", true},
		{"ox.ac.uk", true},
		{"notacme.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.ContainsDomain(tt.domain); got != tt.want {
			t.Errorf("ContainsDomain(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}

func TestNilSetSafe(t *testing.T) {
	var s *Set
	if s.Contains("x") || s.ContainsDomain("x") || s.Len() != 0 {
		t.Error("nil Set should behave as empty")
	}
}
