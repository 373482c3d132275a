package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/extract"
)

// Kind tells which workflow sheet a lead belongs to
type Kind string

const (
	KindValidation Kind = "validation"
	KindReview     Kind = "review"
)

// Lead is one stored lead with its classification
type Lead struct {
	ID          int64
	MessageID   string
	Subject     string
	Sender      string
	ReceivedAt  time.Time
	Kind        Kind
	Company     string
	Country     string
	Email       string
	Status      classify.Status
	Reason      string
	Confidence  classify.Confidence
	DomainMatch string
	Fields      map[string]string // Full extracted field map
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Decision is the human verdict read back from a report for one lead
type Decision struct {
	ID              int64
	LeadID          int64
	TakeAction      string
	RejectReason    string
	InvalidReason   string
	ScoringInfo     string
	SendTo          string
	MoveToFolder    string
	FormSubmission  string // Replay outcome of the validation-form submission
	EmailMoveStatus string // Replay outcome of the mailbox move
	ImportedAt      time.Time
}

// Run is one recorded extraction or classification run
type Run struct {
	ID         int64
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	ReportPath string
	Error      string
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		subject TEXT NOT NULL,
		sender TEXT,
		received_at DATETIME,
		kind TEXT NOT NULL,
		company TEXT,
		country TEXT,
		email TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		confidence TEXT,
		domain_match TEXT,
		fields TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
	CREATE INDEX IF NOT EXISTS idx_leads_kind ON leads(kind);
	CREATE INDEX IF NOT EXISTS idx_leads_received_at ON leads(received_at);

	-- Decisions read back from workflow reports
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lead_id INTEGER NOT NULL UNIQUE REFERENCES leads(id),
		take_action TEXT,
		reject_reason TEXT,
		invalid_reason TEXT,
		scoring_info TEXT,
		send_to TEXT,
		move_to_folder TEXT,
		form_submission TEXT,
		email_move_status TEXT,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_lead_id ON decisions(lead_id);

	-- Run log
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		started_at DATETIME,
		finished_at DATETIME,
		total INTEGER DEFAULT 0,
		report_path TEXT,
		error TEXT
	);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "leadsieve_history.db"
	}
	return filepath.Join(home, ".leadsieve", "history.db")
}

// UpsertLead inserts a lead or refreshes an existing one by message ID.
// A protected stored status keeps its status, reason and confidence no
// matter what the incoming record carries.
func (s *Store) UpsertLead(lead *Lead) error {
	existing, err := s.GetLeadByMessageID(lead.MessageID)
	if err != nil {
		return err
	}
	if existing != nil && classify.IsProtected(existing.Status) {
		lead.Status = existing.Status
		lead.Reason = existing.Reason
		lead.Confidence = existing.Confidence
	}

	fieldsJSON, err := json.Marshal(lead.Fields)
	if err != nil {
		return fmt.Errorf("failed to serialize lead fields: %w", err)
	}

	query := `
	INSERT INTO leads (message_id, subject, sender, received_at, kind, company, country, email,
		status, reason, confidence, domain_match, fields, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(message_id) DO UPDATE SET
		subject = excluded.subject,
		sender = excluded.sender,
		received_at = excluded.received_at,
		kind = excluded.kind,
		company = excluded.company,
		country = excluded.country,
		email = excluded.email,
		status = excluded.status,
		reason = excluded.reason,
		confidence = excluded.confidence,
		domain_match = excluded.domain_match,
		fields = excluded.fields,
		updated_at = excluded.updated_at
	`

	now := time.Now()
	_, err = s.db.Exec(query,
		lead.MessageID, lead.Subject, lead.Sender, lead.ReceivedAt, lead.Kind,
		lead.Company, lead.Country, lead.Email,
		lead.Status, lead.Reason, lead.Confidence, lead.DomainMatch,
		string(fieldsJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lead: %w", err)
	}

	stored, err := s.GetLeadByMessageID(lead.MessageID)
	if err != nil {
		return err
	}
	lead.ID = stored.ID
	return nil
}

const leadColumns = `id, message_id, subject, sender, received_at, kind, company, country, email,
	status, reason, confidence, domain_match, fields, created_at, updated_at`

// scanLead handles nullable columns when scanning a row
func scanLead(scanner interface{ Scan(...any) error }) (*Lead, error) {
	var l Lead
	var receivedAt, createdAt, updatedAt sql.NullTime
	var sender, company, country, email, reason, confidence, domainMatch, fields sql.NullString

	err := scanner.Scan(&l.ID, &l.MessageID, &l.Subject, &sender, &receivedAt, &l.Kind,
		&company, &country, &email, &l.Status, &reason, &confidence, &domainMatch,
		&fields, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.Sender = sender.String
	l.Company = company.String
	l.Country = country.String
	l.Email = email.String
	l.Reason = reason.String
	l.Confidence = classify.Confidence(confidence.String)
	l.DomainMatch = domainMatch.String
	l.ReceivedAt = receivedAt.Time
	l.CreatedAt = createdAt.Time
	l.UpdatedAt = updatedAt.Time

	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &l.Fields); err != nil {
			return nil, fmt.Errorf("failed to parse lead fields: %w", err)
		}
	}
	return &l, nil
}

func (s *Store) GetLeadByMessageID(messageID string) (*Lead, error) {
	lead, err := scanLead(s.db.QueryRow(
		`SELECT `+leadColumns+` FROM leads WHERE message_id = ?`, messageID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return lead, nil
}

func (s *Store) GetLeadByID(id int64) (*Lead, error) {
	lead, err := scanLead(s.db.QueryRow(
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return lead, nil
}

// GetLeads retrieves leads, optionally filtered by kind and status.
func (s *Store) GetLeads(kind Kind, status classify.Status, limit int) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var conds []string
	var args []any
	if kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY received_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// UpdateLeadStatus sets a new classification on a lead unless the stored
// status is protected. It reports whether the status changed.
func (s *Store) UpdateLeadStatus(id int64, result classify.Result) (bool, error) {
	lead, err := s.GetLeadByID(id)
	if err != nil {
		return false, err
	}
	if lead == nil {
		return false, fmt.Errorf("lead %d not found", id)
	}
	if classify.IsProtected(lead.Status) && lead.Status != result.Status {
		return false, nil
	}

	_, err = s.db.Exec(
		`UPDATE leads SET status = ?, reason = ?, confidence = ?, updated_at = ? WHERE id = ?`,
		result.Status, result.Reason, result.Confidence, time.Now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update lead status: %w", err)
	}
	return lead.Status != result.Status, nil
}

// GetStats returns lead counts by status.
func (s *Store) GetStats() (map[classify.Status]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[classify.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		stats[classify.Status(status)] = count
	}
	return stats, rows.Err()
}

// ==================== Decision Methods ====================

// SaveDecision stores or replaces the report verdict for a lead.
func (s *Store) SaveDecision(d *Decision) error {
	query := `
	INSERT INTO decisions (lead_id, take_action, reject_reason, invalid_reason, scoring_info,
		send_to, move_to_folder, form_submission, email_move_status, imported_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(lead_id) DO UPDATE SET
		take_action = excluded.take_action,
		reject_reason = excluded.reject_reason,
		invalid_reason = excluded.invalid_reason,
		scoring_info = excluded.scoring_info,
		send_to = excluded.send_to,
		move_to_folder = excluded.move_to_folder,
		form_submission = excluded.form_submission,
		email_move_status = excluded.email_move_status,
		imported_at = excluded.imported_at
	`
	_, err := s.db.Exec(query,
		d.LeadID, d.TakeAction, d.RejectReason, d.InvalidReason, d.ScoringInfo,
		d.SendTo, d.MoveToFolder, d.FormSubmission, d.EmailMoveStatus, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

const decisionColumns = `id, lead_id, take_action, reject_reason, invalid_reason, scoring_info,
	send_to, move_to_folder, form_submission, email_move_status, imported_at`

func scanDecision(scanner interface{ Scan(...any) error }) (*Decision, error) {
	var d Decision
	var takeAction, rejectReason, invalidReason, scoringInfo sql.NullString
	var sendTo, moveToFolder, formSubmission, emailMoveStatus sql.NullString
	var importedAt sql.NullTime

	err := scanner.Scan(&d.ID, &d.LeadID, &takeAction, &rejectReason, &invalidReason,
		&scoringInfo, &sendTo, &moveToFolder, &formSubmission, &emailMoveStatus, &importedAt)
	if err != nil {
		return nil, err
	}

	d.TakeAction = takeAction.String
	d.RejectReason = rejectReason.String
	d.InvalidReason = invalidReason.String
	d.ScoringInfo = scoringInfo.String
	d.SendTo = sendTo.String
	d.MoveToFolder = moveToFolder.String
	d.FormSubmission = formSubmission.String
	d.EmailMoveStatus = emailMoveStatus.String
	d.ImportedAt = importedAt.Time
	return &d, nil
}

func (s *Store) GetDecision(leadID int64) (*Decision, error) {
	d, err := scanDecision(s.db.QueryRow(
		`SELECT `+decisionColumns+` FROM decisions WHERE lead_id = ?`, leadID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query decision: %w", err)
	}
	return d, nil
}

// GetPendingSubmissions returns decided leads whose form submission has
// not been replayed yet.
func (s *Store) GetPendingSubmissions() ([]Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions
		WHERE take_action != '' AND (form_submission IS NULL OR form_submission = '')
		ORDER BY imported_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending submissions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// GetPendingMoves returns decided leads with a target folder whose
// mailbox move has not been replayed yet.
func (s *Store) GetPendingMoves() ([]Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions
		WHERE move_to_folder != '' AND (email_move_status IS NULL OR email_move_status = '')
		ORDER BY imported_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending moves: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateFormSubmission records the replay outcome of a form submission.
func (s *Store) UpdateFormSubmission(leadID int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE decisions SET form_submission = ? WHERE lead_id = ?`, status, leadID)
	if err != nil {
		return fmt.Errorf("failed to update form submission: %w", err)
	}
	return nil
}

// UpdateEmailMoveStatus records the replay outcome of a mailbox move.
func (s *Store) UpdateEmailMoveStatus(leadID int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE decisions SET email_move_status = ? WHERE lead_id = ?`, status, leadID)
	if err != nil {
		return fmt.Errorf("failed to update email move status: %w", err)
	}
	return nil
}

// ==================== Run Methods ====================

// AddRun records a finished run.
func (s *Store) AddRun(run *Run) error {
	result, err := s.db.Exec(
		`INSERT INTO runs (command, started_at, finished_at, total, report_path, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.Command, run.StartedAt, run.FinishedAt, run.Total, run.ReportPath, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// GetRecentRuns retrieves the latest runs.
func (s *Store) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, command, started_at, finished_at, total, report_path, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, finishedAt sql.NullTime
		var reportPath, errStr sql.NullString
		if err := rows.Scan(&r.ID, &r.Command, &startedAt, &finishedAt, &r.Total, &reportPath, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = startedAt.Time
		r.FinishedAt = finishedAt.Time
		r.ReportPath = reportPath.String
		r.Error = errStr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LeadFromRecord converts an extracted record into a storable lead.
func LeadFromRecord(rec *extract.LeadRecord, kind Kind, result classify.Result, domainMatch string) *Lead {
	return &Lead{
		MessageID:   rec.ID,
		Subject:     rec.Subject,
		Sender:      rec.Sender,
		ReceivedAt:  rec.ReceivedAt,
		Kind:        kind,
		Company:     rec.Get(extract.FieldCompany),
		Country:     rec.Get(extract.FieldCountry),
		Email:       rec.Get(extract.FieldEmailAddress),
		Status:      result.Status,
		Reason:      result.Reason,
		Confidence:  result.Confidence,
		DomainMatch: domainMatch,
		Fields:      rec.Fields,
	}
}
