package classify

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "acme", "acme", 1.0},
		{"empty left", "", "anything", 0.0},
		{"empty right", "anything", "", 0.0},
		{"substring", "acme", "acmegroup", 0.8},
		{"substring reversed", "acmegroup", "acme", 0.8},
		{"no overlap", "abcd", "wxyz", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityPositional(t *testing.T) {
	// a, m, e agree at positions 0, 2, 3 over max length 5.
	got := Similarity("acme", "abmeo")
	want := 3.0 / 5.0
	if got != want {
		t.Errorf("Similarity = %v, want %v", got, want)
	}
}

func TestCompanySimilarity(t *testing.T) {
	tests := []struct {
		company string
		main    string
		want    float64
	}{
		{"Acme Corp", "acme", 1.0},
		{"Acme Group Holding GmbH", "acme", 1.0},
		{"Acme", "acmegroup", 0.8},
	}
	for _, tt := range tests {
		if got := CompanySimilarity(tt.company, tt.main); got != tt.want {
			t.Errorf("CompanySimilarity(%q, %q) = %v, want %v", tt.company, tt.main, got, tt.want)
		}
	}
}
