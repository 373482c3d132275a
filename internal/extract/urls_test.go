package extract

import "testing"

func TestUnwrapURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"safelinks",
			"https://eur01.safelinks.protection.outlook.com/?url=https%3A%2F%2Fcrm.example.com%2Fq%2F1&data=abc",
			"https://crm.example.com/q/1",
		},
		{
			"generic url parameter",
			"https://t.example.com/c?url=https%3A%2F%2Fdest.example.com%2F",
			"https://dest.example.com/",
		},
		{
			"u parameter",
			"https://t.example.com/c?u=https%3A%2F%2Fdest.example.com%2F",
			"https://dest.example.com/",
		},
		{
			"non-http parameter ignored",
			"https://t.example.com/c?u=12345",
			"https://t.example.com/c?u=12345",
		},
		{
			"plain url unchanged",
			"https://example.com/page",
			"https://example.com/page",
		},
		{
			"malformed passes through",
			"http://exa mple.com/%zz",
			"http://exa mple.com/%zz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapURL(tt.in); got != tt.want {
				t.Errorf("UnwrapURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"copyright footer cut", "Acme GmbH\nCopyright 2024 Example. All rights reserved.", "Acme GmbH"},
		{"angle-wrapped url removed", "Visit us\n<https://tracking.example.com/x>", "Visit us"},
		{"tracking pixel removed", "Value https://img01.en25.com/pixel/tinydot.gif trailing", "Value  trailing"},
		{"stray label becomes empty", "Company Matching Status", ""},
		{"blank lines collapsed", "a\n\n\nb", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanValue(tt.in); got != tt.want {
				t.Errorf("CleanValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAllEmails(t *testing.T) {
	got := AllEmails("Write to <JOHN@Acme.COM> or mailto:jane@acme.com, john@acme.com again")
	want := []string{"jane@acme.com", "john@acme.com"}
	if len(got) != len(want) {
		t.Fatalf("AllEmails = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("AllEmails[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
