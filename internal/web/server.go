// Package web serves the local lead-review UI over the triage history.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/extract"
	"github.com/leadsieve/leadsieve/internal/history"
	"github.com/leadsieve/leadsieve/internal/report"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 60
	defaultRateWindow = time.Minute
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		windowStart := time.Now().Add(-rl.window)
		for key, times := range rl.requests {
			recent := rl.filterRecent(times, windowStart)
			if len(recent) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

type Server struct {
	config      *config.Config
	store       *history.Store
	templates   map[string]*template.Template
	httpServer  *http.Server
	csrfKey     []byte
	rateLimiter *RateLimiter
}

func NewServer(cfg *config.Config, store *history.Store) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	s := &Server{
		config:      cfg,
		store:       store,
		csrfKey:     csrfKey,
		rateLimiter: NewRateLimiter(defaultRateLimit, defaultRateWindow),
	}

	tmpl, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// parseTemplates loads layout plus one template set per page so each
// page can define its own "content" block.
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006 3:04 PM")
		},
	}

	layoutContent, err := templatesFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout template: %w", err)
	}

	templates := make(map[string]*template.Template)
	err = fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == "templates/layout.html" || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		name := path[len("templates/"):]
		pageTmpl := template.New(name).Funcs(funcs)
		if _, err := pageTmpl.Parse(string(layoutContent)); err != nil {
			return fmt.Errorf("failed to parse layout for %s: %w", name, err)
		}
		if _, err := pageTmpl.Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = pageTmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Start runs the web server until the context is cancelled
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         s.config.Web.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	fmt.Printf("Review UI listening at http://%s\n", s.config.Web.Listen)
	fmt.Println("Press Ctrl+C to stop")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)
	r.Use(s.rateLimit)

	host := s.config.Web.Listen
	csrfMiddleware := csrf.Protect(
		s.csrfKey,
		csrf.Secure(false), // localhost-only UI stays on plain HTTP
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins([]string{"localhost", "127.0.0.1", host}),
	)
	r.Use(csrfMiddleware)

	r.Get("/", s.handleDashboard)
	r.Get("/leads", s.handleLeads)
	r.Get("/leads/{leadID}", s.handleLeadDetail)
	r.Post("/leads/{leadID}/decision", s.handleDecision)
	r.Post("/leads/{leadID}/status", s.handleStatusUpdate)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleAPIStats)
	})

	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(r.RemoteAddr) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"form-action 'self'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next.ServeHTTP(w, r)
	})
}

// Handler implementations

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		s.renderError(w, err)
		return
	}
	runs, err := s.store.GetRecentRuns(10)
	if err != nil {
		s.renderError(w, err)
		return
	}

	type statRow struct {
		Status string
		Count  int
	}
	rows := make([]statRow, 0, len(stats))
	total := 0
	for _, status := range []classify.Status{
		classify.StatusValid,
		classify.StatusNotStarted,
		classify.StatusFreemail,
		classify.StatusAcademic,
		classify.StatusExcludedDomain,
		classify.StatusDirectAccount,
		classify.StatusBlacklistedCountry,
		classify.StatusUniversityContact,
		classify.StatusMassMarket,
		classify.StatusCompleted,
	} {
		if count, ok := stats[status]; ok {
			rows = append(rows, statRow{Status: string(status), Count: count})
			total += count
		}
	}

	s.render(w, r, "dashboard.html", map[string]interface{}{
		"Title":      "Dashboard",
		"Stats":      rows,
		"TotalLeads": total,
		"Runs":       runs,
	})
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	kind := history.Kind(r.URL.Query().Get("kind"))
	status := classify.Status(r.URL.Query().Get("status"))

	leads, err := s.store.GetLeads(kind, status, 500)
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, r, "leads.html", map[string]interface{}{
		"Title":  "Leads",
		"Leads":  leads,
		"Kind":   string(kind),
		"Status": string(status),
		"Statuses": []string{
			string(classify.StatusValid),
			string(classify.StatusNotStarted),
			string(classify.StatusFreemail),
			string(classify.StatusAcademic),
			string(classify.StatusExcludedDomain),
			string(classify.StatusDirectAccount),
			string(classify.StatusBlacklistedCountry),
			string(classify.StatusUniversityContact),
			string(classify.StatusMassMarket),
			string(classify.StatusCompleted),
		},
	})
}

func (s *Server) handleLeadDetail(w http.ResponseWriter, r *http.Request) {
	lead, ok := s.leadFromURL(w, r)
	if !ok {
		return
	}

	decision, err := s.store.GetDecision(lead.ID)
	if err != nil {
		s.renderError(w, err)
		return
	}

	actions := report.TakeActionValidation
	rejectReasons := report.ValidRejectReasons
	if lead.Kind == history.KindReview {
		actions = report.TakeActionReview
		rejectReasons = report.RejectReasonsReview
	}

	s.render(w, r, "lead.html", map[string]interface{}{
		"Title":          lead.Company,
		"Lead":           lead,
		"Decision":       decision,
		"Protected":      classify.IsProtected(lead.Status),
		"Review":         lead.Kind == history.KindReview,
		"Actions":        actions,
		"RejectReasons":  rejectReasons,
		"InvalidReasons": report.InvalidCompanyReasons,
		"Folders":        report.MoveToFolderOptions,
		"ValidationLink": lead.Fields[extract.FieldValidationLink],
	})
}

// handleDecision stores the reviewer's verdict for later replay
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	lead, ok := s.leadFromURL(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	review := lead.Kind == history.KindReview
	actions := report.TakeActionValidation
	rejectReasons := report.ValidRejectReasons
	if review {
		actions = report.TakeActionReview
		rejectReasons = report.RejectReasonsReview
	}

	d := &history.Decision{
		LeadID:        lead.ID,
		TakeAction:    report.MatchOption(r.FormValue("take_action"), actions),
		RejectReason:  report.MatchOption(r.FormValue("reject_reason"), rejectReasons),
		InvalidReason: report.MatchOption(r.FormValue("invalid_reason"), report.InvalidCompanyReasons),
		ScoringInfo:   strings.TrimSpace(r.FormValue("scoring_info")),
		SendTo:        strings.TrimSpace(r.FormValue("send_to")),
		MoveToFolder:  report.MatchOption(r.FormValue("move_to_folder"), report.MoveToFolderOptions),
	}
	if err := s.store.SaveDecision(d); err != nil {
		s.renderError(w, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/leads/%d", lead.ID), http.StatusSeeOther)
}

// handleStatusUpdate changes a lead's stored status. Protected statuses
// are left untouched.
func (s *Server) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	lead, ok := s.leadFromURL(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	changed, err := s.store.UpdateLeadStatus(lead.ID, classify.Result{
		Status:     classify.Status(r.FormValue("status")),
		Reason:     "Set manually in review UI",
		Confidence: classify.ConfidenceHigh,
	})
	if err != nil {
		s.renderError(w, err)
		return
	}
	if !changed {
		log.Printf("status of lead %d not changed: %s is protected", lead.ID, lead.Status)
	}

	http.Redirect(w, r, fmt.Sprintf("/leads/%d", lead.ID), http.StatusSeeOther)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) leadFromURL(w http.ResponseWriter, r *http.Request) (*history.Lead, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "leadID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return nil, false
	}
	lead, err := s.store.GetLeadByID(id)
	if err != nil {
		http.Error(w, "lead not found", http.StatusNotFound)
		return nil, false
	}
	return lead, true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.renderError(w, fmt.Errorf("template %s not found", name))
		return
	}
	data["CSRFField"] = csrf.TemplateField(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("render %s: %v", name, err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	log.Printf("web: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
