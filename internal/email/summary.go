package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/history"
)

//go:embed templates/summary.tmpl
var embeddedTemplates embed.FS

var summaryTmpl = template.Must(template.ParseFS(embeddedTemplates, "templates/summary.tmpl"))

// summaryData is the data available to the run-summary template
type summaryData struct {
	Command  string
	Started  string
	Finished string
	Duration string
	Total    int
	Report   string
	Error    string
	Statuses []statusCount
}

type statusCount struct {
	Name  string
	Count int
}

// Notifier mails run summaries to the configured recipients
type Notifier struct {
	sender Sender
	cfg    config.NotifyConfig
}

func NewNotifier(cfg config.NotifyConfig) (*Notifier, error) {
	sender, err := NewSender(cfg)
	if err != nil {
		return nil, err
	}
	return &Notifier{sender: sender, cfg: cfg}, nil
}

// NotifyRun sends one summary mail per configured recipient. The first
// send error is returned after all recipients were attempted.
func (n *Notifier) NotifyRun(ctx context.Context, run history.Run, stats map[classify.Status]int) error {
	subject := fmt.Sprintf("Lead triage: %s run finished (%d leads)", run.Command, run.Total)
	body := SummaryBody(run, stats)

	var firstErr error
	for _, to := range n.cfg.To {
		result := n.sender.Send(ctx, Message{
			To:      to,
			From:    n.cfg.From,
			Subject: subject,
			Body:    body,
		})
		if result.Error != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify %s: %w", to, result.Error)
		}
	}
	return firstErr
}

// SummaryBody renders the plain-text run summary
func SummaryBody(run history.Run, stats map[classify.Status]int) string {
	data := summaryData{
		Command: run.Command,
		Started: run.StartedAt.Format("2006-01-02 15:04:05"),
		Total:   run.Total,
		Report:  run.ReportPath,
		Error:   run.Error,
	}
	if !run.FinishedAt.IsZero() {
		data.Finished = run.FinishedAt.Format("2006-01-02 15:04:05")
		data.Duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
	}

	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		data.Statuses = append(data.Statuses, statusCount{Name: status, Count: stats[classify.Status(status)]})
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Run: %s (%d leads)\n", run.Command, run.Total)
	}
	return buf.String()
}
