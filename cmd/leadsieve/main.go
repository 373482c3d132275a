package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/email"
	"github.com/leadsieve/leadsieve/internal/history"
	"github.com/leadsieve/leadsieve/internal/pipeline"
	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/web"
)

var cfgFile string

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "leadsieve",
		Short: "LeadSieve - Pre-MQL sales lead triage",
		Long: `LeadSieve reads Pre-MQL lead notifications from a mailbox, classifies
each lead against reference lists of academic, excluded and direct-account
domains, and generates validation and review reports.

Human verdicts are imported back from the reports and replayed into the
Pre-MQL web forms, and the processed notification mails are filed into
their team folders.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.leadsieve/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(crmCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(refsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	return ctx, cancel
}

func loadValidatedConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openStore() (*history.Store, error) {
	store, err := history.NewStore(history.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open lead history: %w", err)
	}
	return store, nil
}

func newPipeline(cfg *config.Config, store *history.Store) (*pipeline.Pipeline, error) {
	refs, err := refdata.Load(cfg.Refdata.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference lists: %w", err)
	}
	return pipeline.New(cfg, store, refs), nil
}

func parseKind(s string) (history.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "validation":
		return history.KindValidation, nil
	case "review":
		return history.KindReview, nil
	default:
		return "", fmt.Errorf("unknown workflow %q (validation, review)", s)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with your mailbox and reference list settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🔎 LeadSieve Configuration Setup")
	fmt.Println("================================")
	fmt.Println()

	cfg := &config.Config{}

	fmt.Println("📬 Lead Mailbox (IMAP)")
	fmt.Println()

	provider := prompt(reader, "Provider (gmail/outlook/imap) [outlook]: ")
	if provider == "" {
		provider = "outlook"
	}
	cfg.Inbox.Provider = provider
	if provider == "imap" {
		cfg.Inbox.Server = prompt(reader, "IMAP server: ")
		cfg.Inbox.Port = 993
	}
	cfg.Inbox.Email = prompt(reader, "Mailbox address: ")
	cfg.Inbox.Password = prompt(reader, "App password: ")

	fmt.Println()
	fmt.Println("📚 Reference Lists")
	fmt.Println()

	cfg.Refdata.Dir = filepath.Join(config.DefaultDataDir(), "refdata")
	refdataDir := prompt(reader, fmt.Sprintf("Reference list directory [%s]: ", cfg.Refdata.Dir))
	if refdataDir != "" {
		cfg.Refdata.Dir = refdataDir
	}

	fmt.Println()
	fmt.Println("⚙️  Options")
	fmt.Println()

	webCheck := prompt(reader, "Enable live academic homepage check (y/N): ")
	cfg.Pipeline.WebCheck = strings.EqualFold(webCheck, "y")
	cfg.Pipeline.BrowserHeadless = true

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Place the reference CSV lists in the refdata directory")
	fmt.Println("  2. Run 'leadsieve refs' to check they load")
	fmt.Println("  3. Run 'leadsieve scan --days 1' to process yesterday's leads")
	fmt.Println("  4. Run 'leadsieve serve' to review leads in the browser")

	return nil
}

func scanCmd() *cobra.Command {
	var (
		days      int
		sinceStr  string
		beforeStr string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch and classify lead notifications",
		Long: `Connect to the lead mailbox, fetch Pre-MQL notification emails in the
date window, extract and classify each lead, and write the validation
and review report files.

Leads are stored in the local history database; a previously assigned
protected status (Academic, Completed, manual overrides) survives
re-classification.

Examples:
  # Process yesterday's and today's notifications
  leadsieve scan --days 1

  # Process an explicit window
  leadsieve scan --since 2026-08-01 --before 2026-08-15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(days, sinceStr, beforeStr)
		},
	}

	cmd.Flags().IntVar(&days, "days", 1, "Number of days to look back")
	cmd.Flags().StringVar(&sinceStr, "since", "", "Start date (YYYY-MM-DD, overrides --days)")
	cmd.Flags().StringVar(&beforeStr, "before", "", "End date (YYYY-MM-DD, exclusive)")

	return cmd
}

func runScan(days int, sinceStr, beforeStr string) error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateInbox(); err != nil {
		return fmt.Errorf("inbox not configured: %w", err)
	}

	since, before, err := dateWindow(days, sinceStr, beforeStr)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("📬 Scanning %s for leads since %s...\n", cfg.Inbox.Email, since.Format("2006-01-02"))
	fmt.Println()

	result, err := p.Scan(ctx, since, before)
	notifyErr := notifyRun(ctx, cfg, store)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Processed %d leads (%d validation, %d review)\n", result.Total, result.Validation, result.Review)
	if result.ValidationPath != "" {
		fmt.Printf("  📄 Validation report: %s\n", result.ValidationPath)
	}
	if result.ReviewPath != "" {
		fmt.Printf("  📄 Review report: %s\n", result.ReviewPath)
	}
	if notifyErr != nil {
		fmt.Printf("  ⚠️  Notification failed: %v\n", notifyErr)
	}

	return nil
}

// notifyRun mails the summary of the latest run to the configured
// recipients. Failures are reported but never fail the run itself.
func notifyRun(ctx context.Context, cfg *config.Config, store *history.Store) error {
	if !cfg.Notify.Enabled {
		return nil
	}
	if err := cfg.ValidateNotify(); err != nil {
		return err
	}

	runs, err := store.GetRecentRuns(1)
	if err != nil || len(runs) == 0 {
		return err
	}
	stats, err := store.GetStats()
	if err != nil {
		return err
	}

	notifier, err := email.NewNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	return notifier.NotifyRun(ctx, runs[0], stats)
}

func dateWindow(days int, sinceStr, beforeStr string) (time.Time, time.Time, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)
	before := time.Time{}

	if sinceStr != "" {
		t, err := time.Parse("2006-01-02", sinceStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since date: %w", err)
		}
		since = t
	}
	if beforeStr != "" {
		t, err := time.Parse("2006-01-02", beforeStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --before date: %w", err)
		}
		before = t
	}
	if !before.IsZero() && before.Before(since) {
		return time.Time{}, time.Time{}, fmt.Errorf("--before is earlier than --since")
	}
	return since, before, nil
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Re-classify stored leads against the reference lists",
		Long: `Re-run the triage pipeline over every stored lead without touching the
mailbox, picking up changes to the reference lists. Protected statuses
(Academic, Completed, manual overrides) are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify()
		},
	}
}

func runClassify() error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("🔁 Re-classifying stored leads...")
	fmt.Println()

	result, err := p.Reclassify(ctx)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Complete: %d leads checked, %d updated\n", result.Total, result.Changed)

	return nil
}

func importCmd() *cobra.Command {
	var kindStr string

	cmd := &cobra.Command{
		Use:   "import <report.csv>",
		Short: "Import human verdicts from a filled report",
		Long: `Read the Take Action, rejection reason and folder columns back from a
report file the team has filled in, and store each verdict as a pending
decision.

Decisions are replayed with 'leadsieve submit' (web forms) and
'leadsieve move' (mailbox folders).

Examples:
  leadsieve import --kind validation ~/.leadsieve/reports/demande_validation_21_08.csv
  leadsieve import --kind review ~/.leadsieve/reports/demande_review_21_08.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], kindStr)
		},
	}

	cmd.Flags().StringVar(&kindStr, "kind", "validation", "Workflow the report belongs to (validation/review)")

	return cmd
}

func runImport(path, kindStr string) error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}

	kind, err := parseKind(kindStr)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	fmt.Printf("📥 Importing %s verdicts from %s\n", kind, path)
	fmt.Println()

	result, err := p.Import(path, kind)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Imported %d decisions, %d rows skipped\n", result.Decisions, result.Skipped)
	if result.Decisions > 0 {
		fmt.Println()
		fmt.Println("Next: 'leadsieve submit' to replay them into the web forms,")
		fmt.Println("then 'leadsieve move' to file the notification emails.")
	}

	return nil
}

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Replay imported decisions into the Pre-MQL web forms",
		Long: `Open each pending decision's validation or review form in headless
Chrome, select the Take Action radio, fill the reason and assignment
fields, and submit.

The outcome of every attempt is recorded on the decision; successfully
submitted leads are marked Completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit()
		},
	}
}

func runSubmit() error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("🌐 Replaying decisions into the Pre-MQL forms...")
	fmt.Println()

	result, err := p.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Complete: %d submitted, %d failed, %d skipped\n", result.Submitted, result.Failed, result.Skipped)

	return nil
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move",
		Short: "File processed notification emails into team folders",
		Long: `Move each decided lead's notification email from the inbox into the
folder named in its Move-to column, creating missing folders on the
way. Decisions without a folder verdict are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove()
		},
	}
}

func runMove() error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateInbox(); err != nil {
		return fmt.Errorf("inbox not configured: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("📁 Filing notification emails into team folders...")
	fmt.Println()

	result, err := p.Move(ctx)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Complete: %d moved, %d failed, %d skipped\n", result.Moved, result.Failed, result.Skipped)
	if result.FolderNotFound > 0 {
		fmt.Printf("  ⚠️  %d emails targeted folders that could not be created\n", result.FolderNotFound)
	}

	return nil
}

func crmCmd() *cobra.Command {
	var kindStr string

	cmd := &cobra.Command{
		Use:   "crm",
		Short: "Annotate leads with CRM account matches",
		Long: `Look up each stored lead's company in the CRM account search and fill
the matching-status column with the most recent approved account.

Per-company results are cached for the run, so duplicate companies cost
one lookup. Requires crm settings in config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCRM(kindStr)
		},
	}

	cmd.Flags().StringVar(&kindStr, "kind", "validation", "Workflow to annotate (validation/review)")

	return cmd
}

func runCRM(kindStr string) error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}

	kind, err := parseKind(kindStr)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("🔎 Looking up %s lead companies in the CRM...\n", kind)
	fmt.Println()

	result, err := p.AnnotateCRM(ctx, kind)
	if err != nil {
		return err
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Complete: %d matched, %d without an account\n", result.Matched, result.Unmatched)

	return nil
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local review web interface",
		Long: `Start a local web server providing a browser-based review interface.

This opens a dashboard where you can:
- See lead totals per triage status and recent runs
- Browse validation and review leads
- Record Take Action verdicts without the CSV round trip
- Override a lead's status manually

The server runs locally on your machine - no data is sent to external servers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config, 127.0.0.1:8787)")

	return cmd
}

func runServe(listen string) error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Web.Listen = listen
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := web.NewServer(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	fmt.Printf("🌐 Review UI listening on http://%s\n", cfg.Web.Listen)

	return server.Start()
}

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show lead statistics and recent runs",
		Long:  "Display lead totals per triage status and the most recent pipeline runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent runs to show")

	return cmd
}

// statusOrder fixes the display order of triage statuses.
var statusOrder = []classify.Status{
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
}

func runStatus(limit int) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("📊 LeadSieve Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	total := 0
	for _, status := range statusOrder {
		count := stats[status]
		total += count
		if count > 0 {
			fmt.Printf("  %-20s %d\n", status, count)
		}
	}
	fmt.Printf("  %-20s %d\n", "Total", total)

	runs, err := store.GetRecentRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent runs: %w", err)
	}

	if len(runs) > 0 {
		fmt.Println()
		fmt.Printf("📜 Recent Runs (last %d)\n", limit)
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		for _, r := range runs {
			status := "✅"
			if r.Error != "" {
				status = "❌"
			}
			fmt.Printf("%s %s - %s (%d leads)\n",
				status,
				r.StartedAt.Format("2006-01-02 15:04"),
				r.Command,
				r.Total,
			)
			if r.ReportPath != "" {
				fmt.Printf("   Report: %s\n", r.ReportPath)
			}
			if r.Error != "" {
				fmt.Printf("   Error: %s\n", r.Error)
			}
		}
	}

	return nil
}

func refsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "Show the loaded reference lists",
		Long:  "Load the reference list directory and print entry counts per list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs()
		},
	}
}

func runRefs() error {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return err
	}

	refs, err := refdata.Load(cfg.Refdata.Dir)
	if err != nil {
		return fmt.Errorf("failed to load reference lists: %w", err)
	}

	fmt.Printf("📚 Reference Lists (%s)\n", cfg.Refdata.Dir)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("  Academic domains:      %d\n", refs.AcademicDomains.Len())
	fmt.Printf("  Excluded domains:      %d\n", refs.ExcludedDomains.Len())
	fmt.Printf("  Direct accounts:       %d\n", refs.DirectAccounts.Len())
	fmt.Printf("  Blacklisted countries: %d\n", refs.BlacklistedCountries.Len())
	fmt.Printf("  Freemail domains:      %d\n", refs.FreemailDomains.Len())

	if len(refs.Institutions) > 0 {
		fmt.Println()
		fmt.Printf("  Institution lists for %d countries:\n", len(refs.Institutions))
		for country, set := range refs.Institutions {
			fmt.Printf("    %-20s %d\n", country, set.Len())
		}
	}

	return nil
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
