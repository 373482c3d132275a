package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/leadsieve/leadsieve/internal/browser"
	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/crm"
	"github.com/leadsieve/leadsieve/internal/extract"
	"github.com/leadsieve/leadsieve/internal/history"
	"github.com/leadsieve/leadsieve/internal/mailbox"
)

// SubmitResult summarises one form-replay run
type SubmitResult struct {
	Submitted int
	Failed    int
	Skipped   int
}

// Submit replays imported decisions into the Pre-MQL web forms. Every
// attempt is recorded on the decision; successfully submitted leads are
// marked Completed.
func (p *Pipeline) Submit(ctx context.Context) (*SubmitResult, error) {
	pending, err := p.store.GetPendingSubmissions()
	if err != nil {
		return nil, err
	}
	res := &SubmitResult{}
	if len(pending) == 0 {
		return res, nil
	}

	b, err := browser.New(browser.Config{
		Headless:     p.cfg.Pipeline.BrowserHeadless,
		Timeout:      time.Duration(p.cfg.Pipeline.BrowserTimeoutSec) * time.Second,
		UserAgent:    browser.DefaultConfig().UserAgent,
		WindowWidth:  browser.DefaultConfig().WindowWidth,
		WindowHeight: browser.DefaultConfig().WindowHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	defer b.Close()

	for _, d := range pending {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		lead, err := p.store.GetLeadByID(d.LeadID)
		if err != nil {
			log.Printf("submit: lead %d not found: %v", d.LeadID, err)
			res.Skipped++
			continue
		}

		outcome := b.SubmitDecision(browser.FormRequest{
			Link:          lead.Fields[extract.FieldValidationLink],
			Kind:          lead.Kind,
			TakeAction:    d.TakeAction,
			Company:       lead.Company,
			RejectReason:  d.RejectReason,
			InvalidReason: d.InvalidReason,
			ScoringInfo:   d.ScoringInfo,
			SendTo:        d.SendTo,
		})
		if err := p.store.UpdateFormSubmission(d.LeadID, outcome.Message); err != nil {
			return res, err
		}

		switch {
		case outcome.Success:
			res.Submitted++
			if _, err := p.store.UpdateLeadStatus(d.LeadID, classify.Result{
				Status:     classify.StatusCompleted,
				Reason:     "Form submitted",
				Confidence: classify.ConfidenceHigh,
			}); err != nil {
				return res, err
			}
		case strings.HasPrefix(outcome.Message, "Skipped"):
			res.Skipped++
		default:
			res.Failed++
		}
	}
	return res, nil
}

// Move replays folder decisions against the mailbox
func (p *Pipeline) Move(ctx context.Context) (*mailbox.MoveResult, error) {
	pending, err := p.store.GetPendingMoves()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &mailbox.MoveResult{}, nil
	}

	requests := make([]mailbox.MoveRequest, 0, len(pending))
	leadIDs := make([]int64, 0, len(pending))
	for _, d := range pending {
		lead, err := p.store.GetLeadByID(d.LeadID)
		if err != nil {
			log.Printf("move: lead %d not found: %v", d.LeadID, err)
			continue
		}
		requests = append(requests, mailbox.MoveRequest{
			Subject:    lead.Subject,
			ReceivedAt: lead.ReceivedAt,
			Folder:     d.MoveToFolder,
		})
		leadIDs = append(leadIDs, d.LeadID)
	}

	client := mailbox.NewClient(p.cfg.Inbox)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Disconnect()

	result := client.MoveLeads(requests, func(i int, status string) {
		if err := p.store.UpdateEmailMoveStatus(leadIDs[i], status); err != nil {
			log.Printf("move: failed to record status for lead %d: %v", leadIDs[i], err)
		}
	})
	return &result, nil
}

// AnnotateResult summarises one CRM annotation run
type AnnotateResult struct {
	Matched   int
	Unmatched int
}

// AnnotateCRM fills the matching-status column of stored leads from the
// CRM account lookup. Leads that already carry a match are skipped.
func (p *Pipeline) AnnotateCRM(ctx context.Context, kind history.Kind) (*AnnotateResult, error) {
	if !p.cfg.CRM.Enabled {
		return nil, fmt.Errorf("crm lookup is disabled in the config")
	}

	leads, err := p.store.GetLeads(kind, "", 0)
	if err != nil {
		return nil, err
	}

	b, err := browser.New(browser.Config{
		Headless:     p.cfg.Pipeline.BrowserHeadless,
		Timeout:      time.Duration(p.cfg.Pipeline.BrowserTimeoutSec) * time.Second,
		UserAgent:    browser.DefaultConfig().UserAgent,
		WindowWidth:  browser.DefaultConfig().WindowWidth,
		WindowHeight: browser.DefaultConfig().WindowHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	defer b.Close()

	lookup := crm.NewLookup(b, p.cfg.CRM)
	res := &AnnotateResult{}
	for i := range leads {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		lead := &leads[i]
		if lead.Company == "" || lead.Fields[extract.FieldMatchingStatus] != "" {
			continue
		}
		account, err := lookup.Account(lead.Company)
		if err != nil {
			log.Printf("crm: lookup %q failed: %v", lead.Company, err)
			continue
		}
		if account == "" {
			res.Unmatched++
			continue
		}
		lead.Fields[extract.FieldMatchingStatus] = account
		if err := p.store.UpsertLead(lead); err != nil {
			return res, err
		}
		res.Matched++
	}
	return res, nil
}
