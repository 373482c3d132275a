package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/extract"
	"github.com/leadsieve/leadsieve/internal/history"
	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/report"
)

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Reports.Dir = dir
	cfg.Pipeline.Workers = 2
	return cfg
}

func testRefs() *refdata.Store {
	return &refdata.Store{
		AcademicDomains:      refdata.NewSet("ox.ac.uk"),
		ExcludedDomains:      refdata.NewSet("competitor.com"),
		DirectAccounts:       refdata.NewSet("Big Silicon Corp"),
		BlacklistedCountries: refdata.NewSet("Atlantis"),
		FreemailDomains:      refdata.NewSet("gmail.com", "yahoo.com"),
		Institutions:         map[string]*refdata.Set{},
	}
}

func TestKindForSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    history.Kind
	}{
		{"Pre-MQL ready for validation", history.KindValidation},
		{"RE: Pre-MQL ready for Validation", history.KindValidation},
		{"Pre-MQL ready for review", history.KindReview},
		{"FW: Pre-MQL ready for review", history.KindReview},
	}
	for _, tt := range tests {
		if got := KindForSubject(tt.subject); got != tt.want {
			t.Errorf("KindForSubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestApplyResult(t *testing.T) {
	rec := &extract.LeadRecord{Fields: map[string]string{}}
	verdict := classify.DomainVerdict{Match: classify.MatchValid}

	applyResult(rec, classify.Result{
		Status:     classify.StatusValid,
		Reason:     "Passed all triage checks",
		Confidence: classify.ConfidenceHigh,
	}, verdict)

	if got := rec.Get(extract.FieldValidationStatus); got != "Valid" {
		t.Errorf("validation status = %q, want Valid", got)
	}
	if got := rec.Get(extract.FieldActionTaken); got != "" {
		t.Errorf("action taken = %q, want empty for valid lead", got)
	}
	if got := rec.Get(extract.FieldDomainValidation); got != string(classify.MatchValid) {
		t.Errorf("domain validation = %q", got)
	}

	rec = &extract.LeadRecord{Fields: map[string]string{}}
	applyResult(rec, classify.Result{
		Status:     classify.StatusFreemail,
		Reason:     "gmail.com is a free mail provider",
		Confidence: classify.ConfidenceHigh,
	}, classify.DomainVerdict{Match: classify.MatchFreeMailer})

	if got := rec.Get(extract.FieldStatus); got != string(classify.StatusFreemail) {
		t.Errorf("status = %q, want Freemail", got)
	}
	if got := rec.Get(extract.FieldValidationStatus); got != "Invalid" {
		t.Errorf("validation status = %q, want Invalid", got)
	}
	if got := rec.Get(extract.FieldActionTaken); got != "gmail.com is a free mail provider" {
		t.Errorf("action taken = %q", got)
	}
}

func TestSplitByKind(t *testing.T) {
	leads := []history.Lead{
		{MessageID: "a", Kind: history.KindValidation},
		{MessageID: "b", Kind: history.KindReview},
		{MessageID: "c", Kind: history.KindValidation},
	}
	validation, review := splitByKind(leads)
	if len(validation) != 2 || len(review) != 1 {
		t.Fatalf("split = %d/%d, want 2/1", len(validation), len(review))
	}
}

func TestImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	received := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	lead := &history.Lead{
		MessageID:  "msg-1",
		Subject:    "Pre-MQL ready for validation",
		Sender:     "noreply@example.com",
		ReceivedAt: received,
		Kind:       history.KindValidation,
		Company:    "Acme GmbH",
		Email:      "jane@acme.com",
		Status:     classify.StatusValid,
		Fields: map[string]string{
			extract.FieldCompany:      "Acme GmbH",
			extract.FieldEmailAddress: "jane@acme.com",
		},
	}
	if err := store.UpsertLead(lead); err != nil {
		t.Fatal(err)
	}
	stored, err := store.GetLeadByMessageID("msg-1")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate the reviewer filling the sheet.
	stored.Fields[extract.FieldTakeAction] = "Valid Company → MQL"
	stored.Fields[extract.FieldScoringInfo] = "Existing design win"
	stored.Fields[extract.FieldMoveToFolder] = "EBV/Avnet"

	writer := &report.Writer{Dir: dir}
	validationPath, _, err := writer.Write("Extraction_14Mar26", []history.Lead{*stored}, nil)
	if err != nil {
		t.Fatal(err)
	}

	p := New(testConfig(dir), store, testRefs())
	res, err := p.Import(validationPath, history.KindValidation)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decisions != 1 || res.Skipped != 0 {
		t.Fatalf("import = %+v, want 1 decision", res)
	}

	d, err := store.GetDecision(stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("decision not stored")
	}
	if d.TakeAction != "Valid Company → MQL" {
		t.Errorf("take action = %q", d.TakeAction)
	}
	if d.ScoringInfo != "Existing design win" {
		t.Errorf("scoring info = %q", d.ScoringInfo)
	}
	if d.MoveToFolder != "EBV/Avnet" {
		t.Errorf("move to folder = %q", d.MoveToFolder)
	}
}

func TestProcessMessagesCancelled(t *testing.T) {
	dir := t.TempDir()
	store, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	cfg := testConfig(dir)
	cfg.Pipeline.Workers = 1
	p := New(cfg, store, testRefs())

	messages := make([]extract.Message, 10)
	for i := range messages {
		messages[i] = extract.Message{
			ID:      fmt.Sprintf("msg-%d", i),
			Subject: "Pre-MQL ready for validation",
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan []history.Lead, 1)
	go func() {
		done <- p.processMessages(ctx, messages)
	}()

	select {
	case leads := <-done:
		if len(leads) == len(messages) {
			t.Errorf("processed all %d messages under a cancelled context", len(leads))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("processMessages did not return after cancellation")
	}
}

func TestReclassify(t *testing.T) {
	dir := t.TempDir()
	store, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	received := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	leads := []*history.Lead{
		{
			// Freemail address stored before gmail.com was on the list.
			MessageID:  "msg-free",
			Subject:    "Pre-MQL ready for validation",
			ReceivedAt: received,
			Kind:       history.KindValidation,
			Company:    "Acme GmbH",
			Email:      "jane@gmail.com",
			Status:     classify.StatusNotStarted,
			Fields:     map[string]string{},
		},
		{
			// Protected status must survive.
			MessageID:  "msg-academic",
			Subject:    "Pre-MQL ready for review",
			ReceivedAt: received,
			Kind:       history.KindReview,
			Company:    "Oxford",
			Email:      "prof@somewhere.com",
			Status:     classify.StatusAcademic,
			Fields:     map[string]string{},
		},
	}
	for _, lead := range leads {
		if err := store.UpsertLead(lead); err != nil {
			t.Fatal(err)
		}
	}

	p := New(testConfig(dir), store, testRefs())
	res, err := p.Reclassify(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d, want 2", res.Total)
	}

	free, err := store.GetLeadByMessageID("msg-free")
	if err != nil {
		t.Fatal(err)
	}
	if free.Status != classify.StatusFreemail {
		t.Errorf("freemail lead status = %q, want %q", free.Status, classify.StatusFreemail)
	}
	if got := free.Fields[extract.FieldValidationStatus]; got != "Invalid" {
		t.Errorf("validation status = %q, want Invalid", got)
	}

	academic, err := store.GetLeadByMessageID("msg-academic")
	if err != nil {
		t.Fatal(err)
	}
	if academic.Status != classify.StatusAcademic {
		t.Errorf("protected lead status = %q, want %q", academic.Status, classify.StatusAcademic)
	}
}
