package crm

import (
	"testing"
	"time"

	"github.com/leadsieve/leadsieve/internal/config"
)

func defaultTestCRMConfig() config.CRMConfig {
	return config.CRMConfig{
		Enabled:     true,
		SearchURL:   "https://crm.example.com/search",
		MaxPagesBck: 3,
	}
}

func TestParseRegistrationDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"14.03.2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"14/03/2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"14-03-2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"2026-03-14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"  14.03.2026  ", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"March 14, 2026", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseRegistrationDate(tt.in)
		if ok != tt.ok {
			t.Errorf("parseRegistrationDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parseRegistrationDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLatestApproved(t *testing.T) {
	rows := []registration{
		{Date: "01.02.2025", Status: "Approved", SoldTo: "Acme North GmbH"},
		{Date: "15.06.2025", Status: "Rejected", SoldTo: "Acme South GmbH"},
		{Date: "20.04.2025", Status: "approved", SoldTo: "Acme Central GmbH"},
		{Date: "garbage", Status: "Approved", SoldTo: "Acme Broken"},
	}

	if got := latestApproved(rows); got != "Acme Central GmbH" {
		t.Errorf("latestApproved = %q, want %q", got, "Acme Central GmbH")
	}
}

func TestLatestApprovedNoMatch(t *testing.T) {
	rows := []registration{
		{Date: "01.02.2025", Status: "Rejected", SoldTo: "Acme North GmbH"},
		{Date: "15.06.2025", Status: "Pending", SoldTo: "Acme South GmbH"},
	}
	if got := latestApproved(rows); got != "" {
		t.Errorf("latestApproved = %q, want empty", got)
	}
	if got := latestApproved(nil); got != "" {
		t.Errorf("latestApproved(nil) = %q, want empty", got)
	}
}

func TestAccountEmptyCompany(t *testing.T) {
	l := NewLookup(nil, defaultTestCRMConfig())
	got, err := l.Account("   ")
	if err != nil {
		t.Fatalf("Account returned error: %v", err)
	}
	if got != "" {
		t.Errorf("Account = %q, want empty", got)
	}
}

func TestAccountUsesCache(t *testing.T) {
	l := NewLookup(nil, defaultTestCRMConfig())
	l.cache["Acme GmbH"] = "Acme Semiconductor AG"

	got, err := l.Account("Acme GmbH")
	if err != nil {
		t.Fatalf("Account returned error: %v", err)
	}
	if got != "Acme Semiconductor AG" {
		t.Errorf("Account = %q, want cached value", got)
	}
}
