package email

import (
	"strings"
	"testing"
	"time"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/history"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"ops@example.com", "Lead Ops <ops@example.com>"}
	for _, addr := range valid {
		if err := ValidateEmail(addr); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", addr, err)
		}
	}

	invalid := []string{"", "no-at-sign", "a@b.com\r\nBcc: x@y.com", "a@b.com,c@d.com"}
	for _, addr := range invalid {
		if err := ValidateEmail(addr); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", addr)
		}
	}
}

func TestNewSenderProviders(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"", "smtp", false},
		{"smtp", "smtp", false},
		{"resend", "resend", false},
		{"sendgrid", "sendgrid", false},
		{"pigeon", "", true},
	}

	for _, tt := range tests {
		sender, err := NewSender(config.NotifyConfig{Provider: tt.provider, APIKey: "key"})
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewSender(%q) = nil error, want error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewSender(%q) error: %v", tt.provider, err)
			continue
		}
		if sender.Name() != tt.wantName {
			t.Errorf("NewSender(%q).Name() = %q, want %q", tt.provider, sender.Name(), tt.wantName)
		}
	}
}

func TestSummaryBody(t *testing.T) {
	run := history.Run{
		Command:    "classify",
		StartedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 14, 9, 2, 30, 0, time.UTC),
		Total:      42,
		ReportPath: "/data/reports/Extraction_14Mar26_Validation.csv",
	}
	stats := map[classify.Status]int{
		classify.StatusValid:    30,
		classify.StatusFreemail: 8,
		classify.StatusAcademic: 4,
	}

	body := SummaryBody(run, stats)

	for _, want := range []string{
		"Run:      classify",
		"Leads:    42",
		"(2m30s)",
		"Extraction_14Mar26_Validation.csv",
		"Valid",
		"Freemail",
		"Academic",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Error:") {
		t.Errorf("summary body has error line for clean run:\n%s", body)
	}
}

func TestSummaryBodyWithError(t *testing.T) {
	run := history.Run{Command: "extract", StartedAt: time.Now(), Error: "imap connection refused"}
	body := SummaryBody(run, nil)
	if !strings.Contains(body, "Error:    imap connection refused") {
		t.Errorf("summary body missing error line:\n%s", body)
	}
}
