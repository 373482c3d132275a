package extract

import (
	"strings"
	"testing"
	"time"
)

const sampleHTML = `
<html><body>
<table>
  <tr><td>First Name</td><td>Maria</td></tr>
  <tr><td>Last Name</td><td>Schneider</td></tr>
  <tr><td>Email Address:</td><td>maria.schneider@acme.de</td></tr>
  <tr><td>Company</td><td>Acme GmbH</td></tr>
  <tr><td>Country</td><td>Germany</td></tr>
  <tr><td>Lead Triggering Activities</td><td>Form: contact_sales_forms submitted</td></tr>
  <tr><td>Qualification Link</td><td><a href="https://eu.example.com/redirect?url=https%3A%2F%2Fcrm.example.com%2Fqualify%2F123">Click here</a></td></tr>
</table>
<p><a href="https://tracking.example.com/?target=https%3A%2F%2Fprofiler.example.com%2Fp%2F9">Open Profiler</a></p>
</body></html>`

const sampleText = `Notification

First Name
Maria
Last Name
Schneider
Email Address
maria.schneider@acme.de
Company
Acme GmbH
Country
Germany
Copyright 2024 All rights reserved.
hidden@after.footer
`

func TestExtractHTML(t *testing.T) {
	rec := Extract(Message{
		ID:         "42",
		Subject:    "Pre-MQL ready for validation: Acme GmbH",
		Sender:     "noreply@marketing.example.com",
		ReceivedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Body:       "Contact maria.schneider@acme.de or sales@acme.de",
		HTMLBody:   sampleHTML,
	})

	want := map[string]string{
		FieldFirstName:      "Maria",
		FieldLastName:       "Schneider",
		FieldEmailAddress:   "maria.schneider@acme.de",
		FieldCompany:        "Acme GmbH",
		FieldCountry:        "Germany",
		FieldReceivedTime:   "2026-03-14 09:30:00",
		FieldAllEmailsFound: "maria.schneider@acme.de; sales@acme.de",
		FieldValidationLink: "https://crm.example.com/qualify/123",
		FieldProfiler:       "https://profiler.example.com/p/9",
	}
	for field, value := range want {
		if got := rec.Get(field); got != value {
			t.Errorf("%s = %q, want %q", field, got, value)
		}
	}

	if got := rec.Get(FieldHasContactSalesForm); got != "Yes" {
		t.Errorf("contact sales form = %q, want Yes", got)
	}
}

func TestExtractPlainText(t *testing.T) {
	rec := Extract(Message{
		ID:      "43",
		Subject: "Pre-MQL ready for review: Acme GmbH",
		Body:    sampleText,
	})

	if got := rec.Get(FieldCompany); got != "Acme GmbH" {
		t.Errorf("Company = %q", got)
	}
	if got := rec.Get(FieldEmailAddress); got != "maria.schneider@acme.de" {
		t.Errorf("Email Address = %q", got)
	}
	// Parsing stops at the copyright footer, but the address scan covers
	// the whole body.
	if got := rec.Get(FieldCountry); got != "Germany" {
		t.Errorf("Country = %q", got)
	}
	if got := rec.Get(FieldAllEmailsFound); !strings.Contains(got, "hidden@after.footer") {
		t.Errorf("All Emails Found = %q, should include footer address", got)
	}
	if got := rec.Get(FieldHasContactSalesForm); got != "No" {
		t.Errorf("contact sales form = %q, want No", got)
	}
}

func TestExtractEveryCatalogueFieldPresent(t *testing.T) {
	rec := Extract(Message{ID: "44"})
	for _, f := range Fields {
		if _, ok := rec.Fields[f]; !ok {
			t.Errorf("field %q missing from record", f)
		}
	}
}

func TestExtractKeepsUnknownLabels(t *testing.T) {
	rec := Extract(Message{
		ID:       "45",
		HTMLBody: `<table><tr><td>Secret Score</td><td>87</td></tr></table>`,
	})
	if got := rec.Get("Secret Score"); got != "87" {
		t.Errorf("unknown label value = %q, want preserved", got)
	}
	extras := rec.ExtraFields()
	if len(extras) != 1 || extras[0] != "Secret Score" {
		t.Errorf("ExtraFields = %v", extras)
	}
}

func TestExtractMalformedHTML(t *testing.T) {
	rec := Extract(Message{
		ID:       "46",
		HTMLBody: `<table><tr><td>Company<td unterminated`,
		Body:     "Company\nFallback AG\n",
	})
	if got := rec.Get(FieldCompany); got != "Fallback AG" {
		t.Errorf("Company = %q, want plain-text fallback", got)
	}
}

func TestExtractValidationLinkFromText(t *testing.T) {
	body := `Lead is ready.
Please click here to qualify the lead:

https://crm.example.com/qualify/777
Thanks`
	rec := Extract(Message{ID: "47", Body: body})
	if got := rec.Get(FieldValidationLink); got != "https://crm.example.com/qualify/777" {
		t.Errorf("validation link = %q", got)
	}
}

func TestExtractSplitsMatchingStatus(t *testing.T) {
	body := `PreMQL review/validation link
https://crm.example.com/qualify/5
Company Matching Status
Matched to existing account
Country
Germany
`
	rec := Extract(Message{ID: "48", Body: body})
	if got := rec.Get(FieldValidationLink); got != "https://crm.example.com/qualify/5" {
		t.Errorf("validation link = %q", got)
	}
	if got := rec.Get(FieldMatchingStatus); got != "Matched to existing account" {
		t.Errorf("matching status = %q", got)
	}
}
