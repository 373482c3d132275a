// Package pipeline wires inbox fetching, field extraction, triage
// classification, persistence and report generation into runs.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/extract"
	"github.com/leadsieve/leadsieve/internal/history"
	"github.com/leadsieve/leadsieve/internal/mailbox"
	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/report"
)

type Pipeline struct {
	cfg        *config.Config
	store      *history.Store
	refs       *refdata.Store
	classifier *classify.Classifier
}

func New(cfg *config.Config, store *history.Store, refs *refdata.Store) *Pipeline {
	var checker classify.WebChecker
	if cfg.Pipeline.WebCheck {
		checker = classify.NewHTTPWebChecker(time.Duration(cfg.Pipeline.WebCheckTimeout) * time.Second)
	}
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		refs:       refs,
		classifier: classify.NewClassifier(refs, checker),
	}
}

// Classifier exposes the wired classifier for one-off checks
func (p *Pipeline) Classifier() *classify.Classifier { return p.classifier }

// ScanResult summarises one extraction run
type ScanResult struct {
	Total          int
	Validation     int
	Review         int
	ValidationPath string
	ReviewPath     string
}

// Scan fetches lead notifications in the date window, extracts and
// classifies them, stores the results and writes the workflow reports.
func (p *Pipeline) Scan(ctx context.Context, since, before time.Time) (*ScanResult, error) {
	run := &history.Run{Command: "scan", StartedAt: time.Now()}

	client := mailbox.NewClient(p.cfg.Inbox)
	if err := client.Connect(ctx); err != nil {
		return nil, p.finishRun(run, err)
	}
	defer client.Disconnect()

	filters := p.cfg.Pipeline.SubjectFilters
	if len(filters) == 0 {
		filters = config.DefaultFilters
	}
	messages, err := client.FetchLeads(ctx, since, before, filters)
	if err != nil {
		return nil, p.finishRun(run, err)
	}

	leads := p.processMessages(ctx, messages)
	validation, review := splitByKind(leads)
	report.MarkMassMarket(review)

	for _, part := range [][]history.Lead{validation, review} {
		for i := range part {
			if err := p.store.UpsertLead(&part[i]); err != nil {
				return nil, p.finishRun(run, err)
			}
		}
	}

	writer := &report.Writer{Dir: p.cfg.Reports.Dir}
	label := report.DateLabel([]report.DateRange{{Start: since, End: before}})
	validationPath, reviewPath, err := writer.Write(label, validation, review)
	if err != nil {
		return nil, p.finishRun(run, err)
	}

	run.Total = len(leads)
	run.ReportPath = validationPath
	if err := p.finishRun(run, nil); err != nil {
		return nil, err
	}

	return &ScanResult{
		Total:          len(leads),
		Validation:     len(validation),
		Review:         len(review),
		ValidationPath: validationPath,
		ReviewPath:     reviewPath,
	}, nil
}

// processMessages extracts and classifies messages with a bounded
// worker pool, preserving input order.
func (p *Pipeline) processMessages(ctx context.Context, messages []extract.Message) []history.Lead {
	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*history.Lead, len(messages))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results[i] = p.processOne(messages[i])
			}
		}()
	}
dispatch:
	for i := range messages {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	leads := make([]history.Lead, 0, len(results))
	for _, lead := range results {
		if lead != nil {
			leads = append(leads, *lead)
		}
	}
	return leads
}

func (p *Pipeline) processOne(msg extract.Message) *history.Lead {
	rec := extract.Extract(msg)

	// A protected stored status survives re-scans.
	var existing classify.Status
	if stored, err := p.store.GetLeadByMessageID(rec.ID); err == nil && stored != nil {
		existing = stored.Status
	}

	company := rec.Get(extract.FieldCompany)
	email := rec.Get(extract.FieldEmailAddress)

	result := p.classifier.Classify(classify.Lead{
		Email:   email,
		Company: company,
		Country: rec.Get(extract.FieldCountry),
		Status:  existing,
	})
	verdict := p.classifier.Domains().ValidateDomain(email, company)
	applyResult(rec, result, verdict)

	return history.LeadFromRecord(rec, KindForSubject(msg.Subject), result, string(verdict.Match))
}

// applyResult writes the triage outcome into the record's report columns
func applyResult(rec *extract.LeadRecord, result classify.Result, verdict classify.DomainVerdict) {
	rec.Set(extract.FieldDomainValidation, string(verdict.Match))
	rec.Set(extract.FieldStatus, string(result.Status))

	if result.Status == classify.StatusValid {
		rec.Set(extract.FieldValidationStatus, "Valid")
		rec.Set(extract.FieldValidationReason, result.Reason)
		return
	}
	rec.Set(extract.FieldValidationStatus, "Invalid")
	rec.Set(extract.FieldValidationReason, result.Reason)
	rec.Set(extract.FieldActionTaken, result.Reason)
}

// ReclassifyResult summarises one re-classification run
type ReclassifyResult struct {
	Total   int
	Changed int
}

// Reclassify re-runs the triage pipeline over every stored lead against
// the currently loaded reference lists. Protected statuses survive
// unchanged.
func (p *Pipeline) Reclassify(ctx context.Context) (*ReclassifyResult, error) {
	res := &ReclassifyResult{}
	for _, kind := range []history.Kind{history.KindValidation, history.KindReview} {
		leads, err := p.store.GetLeads(kind, "", 0)
		if err != nil {
			return nil, err
		}
		for i := range leads {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			lead := leads[i]

			result := p.classifier.Classify(classify.Lead{
				Email:   lead.Email,
				Company: lead.Company,
				Country: lead.Country,
				Status:  lead.Status,
			})
			verdict := p.classifier.Domains().ValidateDomain(lead.Email, lead.Company)

			res.Total++
			if result.Status == lead.Status && string(verdict.Match) == lead.DomainMatch {
				continue
			}

			if result.Status != lead.Status {
				lead.Status = result.Status
				lead.Reason = result.Reason
				lead.Confidence = result.Confidence
				applyFields(lead.Fields, result, verdict)
			} else if lead.Fields != nil {
				lead.Fields[extract.FieldDomainValidation] = string(verdict.Match)
			}
			lead.DomainMatch = string(verdict.Match)

			if err := p.store.UpsertLead(&lead); err != nil {
				return res, fmt.Errorf("update lead %d: %w", lead.ID, err)
			}
			res.Changed++
		}
	}
	return res, nil
}

// applyFields mirrors applyResult for a stored field map.
func applyFields(fields map[string]string, result classify.Result, verdict classify.DomainVerdict) {
	if fields == nil {
		return
	}
	fields[extract.FieldDomainValidation] = string(verdict.Match)
	fields[extract.FieldStatus] = string(result.Status)
	fields[extract.FieldValidationReason] = result.Reason
	if result.Status == classify.StatusValid {
		fields[extract.FieldValidationStatus] = "Valid"
		return
	}
	fields[extract.FieldValidationStatus] = "Invalid"
	fields[extract.FieldActionTaken] = result.Reason
}

// KindForSubject routes a notification onto the validation or review
// sheet based on its subject line.
func KindForSubject(subject string) history.Kind {
	if strings.Contains(strings.ToLower(subject), "validation") {
		return history.KindValidation
	}
	return history.KindReview
}

func splitByKind(leads []history.Lead) (validation, review []history.Lead) {
	for _, lead := range leads {
		if lead.Kind == history.KindValidation {
			validation = append(validation, lead)
		} else {
			review = append(review, lead)
		}
	}
	return validation, review
}

func (p *Pipeline) finishRun(run *history.Run, cause error) error {
	run.FinishedAt = time.Now()
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := p.store.AddRun(run); err != nil {
		log.Printf("failed to record run: %v", err)
	}
	return cause
}

// ImportResult summarises one report import
type ImportResult struct {
	Decisions int
	Skipped   int
}

// Import reads human verdicts back from a report file and stores them
// as pending decisions, matching rows to leads by subject and received
// time.
func (p *Pipeline) Import(path string, kind history.Kind) (*ImportResult, error) {
	review := kind == history.KindReview
	rows, err := report.Read(path, review)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for _, row := range rows {
		lead, err := p.findLead(kind, row)
		if err != nil {
			log.Printf("import: no lead for %q (%s): %v", row.Subject, row.ReceivedTime, err)
			res.Skipped++
			continue
		}

		d := &history.Decision{
			LeadID:        lead.ID,
			TakeAction:    row.Get(extract.FieldTakeAction),
			RejectReason:  row.Get(extract.FieldValidRejectReason),
			InvalidReason: row.Get(extract.FieldInvalidCompanyReason),
			ScoringInfo:   row.Get(extract.FieldScoringInfo),
			SendTo:        row.Get(extract.FieldSendTo),
			MoveToFolder:  row.Get(extract.FieldMoveToFolder),
		}
		if review {
			d.RejectReason = row.Get(extract.FieldRejectReason)
		}
		if d.TakeAction == "" && d.MoveToFolder == "" {
			res.Skipped++
			continue
		}
		if err := p.store.SaveDecision(d); err != nil {
			return nil, err
		}
		res.Decisions++
	}
	return res, nil
}

// findLead locates the stored lead behind a report row. Rows match on
// normalized subject plus received time; the time match tolerates small
// clock differences the same way the mailbox move does.
func (p *Pipeline) findLead(kind history.Kind, row report.RowDecision) (*history.Lead, error) {
	received, _ := time.Parse("2006-01-02 15:04:05", row.ReceivedTime)

	leads, err := p.store.GetLeads(kind, "", 0)
	if err != nil {
		return nil, err
	}
	want := mailbox.NormalizeSubject(row.Subject)
	for i := range leads {
		if mailbox.NormalizeSubject(leads[i].Subject) != want {
			continue
		}
		if received.IsZero() || absDuration(leads[i].ReceivedAt.Sub(received)) <= 5*time.Minute {
			return &leads[i], nil
		}
	}
	return nil, fmt.Errorf("no stored lead matches")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
