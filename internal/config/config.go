package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultFilters select which notification emails a run processes.
var DefaultFilters = []string{
	"Pre-MQL ready for review",
	"Pre-MQL ready for validation",
}

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Inbox    InboxConfig  `yaml:"inbox"`
	Refdata  Refdata      `yaml:"refdata"`
	Reports  Reports      `yaml:"reports,omitempty"`
	Pipeline Pipeline     `yaml:"pipeline,omitempty"`
	CRM      CRMConfig    `yaml:"crm,omitempty"`
	Notify   NotifyConfig `yaml:"notify,omitempty"`
	Web      WebConfig    `yaml:"web,omitempty"`
}

// InboxConfig holds IMAP settings for the monitored lead inbox
type InboxConfig struct {
	Provider string `yaml:"provider"` // "gmail", "outlook", "imap"
	Server   string `yaml:"server"`   // e.g., "outlook.office365.com"
	Port     int    `yaml:"port"`     // e.g., 993
	Email    string `yaml:"email"`    // Mailbox to read leads from
	Password string `yaml:"password"` // App password (not main password)
	Folder   string `yaml:"folder"`   // Folder to read (default: "INBOX")
}

// Refdata points at the reference list directory
type Refdata struct {
	Dir string `yaml:"dir"`
}

// Reports holds output settings for generated workflow reports
type Reports struct {
	Dir string `yaml:"dir"` // Default: ~/.leadsieve/reports
}

// Pipeline holds settings for classification and processing runs
type Pipeline struct {
	SubjectFilters    []string `yaml:"subject_filters,omitempty"` // Defaults to the Pre-MQL filters
	WebCheck          bool     `yaml:"web_check"`                 // Enable the live academic homepage check
	WebCheckTimeout   int      `yaml:"web_check_timeout_sec"`
	Workers           int      `yaml:"workers"` // Parallel leads per run
	BrowserHeadless   bool     `yaml:"browser_headless"`
	BrowserTimeoutSec int      `yaml:"browser_timeout_sec"`
}

// CRMConfig holds settings for the account lookup against the CRM UI
type CRMConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SearchURL   string `yaml:"search_url"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	MaxPagesBck int    `yaml:"max_pages_backward"` // Result pages scanned from the end
}

// NotifyConfig holds settings for run-summary notification mails
type NotifyConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Provider string     `yaml:"provider"` // "smtp", "resend", "sendgrid"
	From     string     `yaml:"from"`
	To       []string   `yaml:"to"`
	APIKey   string     `yaml:"api_key,omitempty"`
	SMTP     SMTPConfig `yaml:"smtp,omitempty"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// WebConfig holds settings for the review web UI
type WebConfig struct {
	Listen string `yaml:"listen"` // Default: 127.0.0.1:8787
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".leadsieve", "config.yaml")
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leadsieve"
	}
	return filepath.Join(home, ".leadsieve")
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Inbox defaults
	if cfg.Inbox.Folder == "" {
		cfg.Inbox.Folder = "INBOX"
	}
	if cfg.Inbox.Provider == "gmail" && cfg.Inbox.Server == "" {
		cfg.Inbox.Server = "imap.gmail.com"
		cfg.Inbox.Port = 993
	}
	if cfg.Inbox.Provider == "outlook" && cfg.Inbox.Server == "" {
		cfg.Inbox.Server = "outlook.office365.com"
		cfg.Inbox.Port = 993
	}

	// Pipeline defaults
	if len(cfg.Pipeline.SubjectFilters) == 0 {
		cfg.Pipeline.SubjectFilters = append([]string(nil), DefaultFilters...)
	}
	if cfg.Pipeline.WebCheckTimeout == 0 {
		cfg.Pipeline.WebCheckTimeout = 10
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.BrowserTimeoutSec == 0 {
		cfg.Pipeline.BrowserTimeoutSec = 30
	}

	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = filepath.Join(DefaultDataDir(), "reports")
	}
	if cfg.Refdata.Dir == "" {
		cfg.Refdata.Dir = filepath.Join(DefaultDataDir(), "refdata")
	}
	if cfg.CRM.MaxPagesBck == 0 {
		cfg.CRM.MaxPagesBck = 3
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8787"
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.Refdata.Dir == "" {
		return fmt.Errorf("refdata: dir is required")
	}
	return nil
}

// ValidateInbox validates inbox settings (only called when the mailbox is used)
func (c *Config) ValidateInbox() error {
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	return nil
}

// ValidateNotify validates notification settings (only when notifications
// are enabled)
func (c *Config) ValidateNotify() error {
	if !c.Notify.Enabled {
		return nil
	}
	if c.Notify.From == "" {
		return fmt.Errorf("notify: from address is required")
	}
	if len(c.Notify.To) == 0 {
		return fmt.Errorf("notify: at least one recipient is required")
	}
	switch c.Notify.Provider {
	case "smtp":
		if c.Notify.SMTP.Host == "" {
			return fmt.Errorf("notify.smtp: host is required")
		}
		if c.Notify.SMTP.Port == 0 {
			return fmt.Errorf("notify.smtp: port is required")
		}
	case "resend", "sendgrid":
		if c.Notify.APIKey == "" {
			return fmt.Errorf("notify: api_key is required for %s", c.Notify.Provider)
		}
	default:
		return fmt.Errorf("notify: unknown provider %q (smtp, resend, sendgrid)", c.Notify.Provider)
	}
	return nil
}
