package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase passthrough", "acme", "acme"},
		{"umlauts fold to digraph-free ascii", "Müller & Söhne", "muller sohne"},
		{"eszett doubles", "Straße", "strasse"},
		{"accents stripped", "Université de Liège", "universite de liege"},
		{"punctuation collapses", "Acme,  Corp. (EMEA)", "acme corp emea"},
		{"digits kept", "3M Deutschland", "3m deutschland"},
		{"non latin dropped", "株式会社 Acme", "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Technische Universität München",
		"ACME Holding GmbH & Co. KG",
		"école polytechnique fédérale",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestStripCorporateSuffixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Group Holding GmbH", "acme"},
		{"Acme International Ltd.", "acme"},
		{"Grouptech Systems", "grouptech systems"},
		{"Company", ""},
	}
	for _, tt := range tests {
		if got := StripCorporateSuffixes(tt.in); got != tt.want {
			t.Errorf("StripCorporateSuffixes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDomainFromEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@acme.com", "acme.com"},
		{"Alice Smith <alice@ACME.com>", "acme.com"},
		{"not an email", ""},
		{"weird@first.com via bob@second.org", "second.org"},
	}
	for _, tt := range tests {
		if got := DomainFromEmail(tt.in); got != tt.want {
			t.Errorf("DomainFromEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMainDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme.com", "acme"},
		{"mail.example.co.uk", "example"},
		{"webmail.acme.de", "acme"},
		{"tum.de", "tum"},
		{"localhost", "localhost"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MainDomain(tt.in); got != tt.want {
			t.Errorf("MainDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
