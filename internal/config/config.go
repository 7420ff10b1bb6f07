package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Render-failure policies for groups with at least one failed voucher.
const (
	// RenderFailureSendPartial sends the group's email with the vouchers
	// that did render. This is the default.
	RenderFailureSendPartial = "send-partial"
	// RenderFailureDeferGroup skips the whole group: no email, no flag
	// updates, so the next run picks the group up again.
	RenderFailureDeferGroup = "defer-group"
)

// Mail delivery modes.
const (
	MailModeOutbox = "outbox"
	MailModeSMTP   = "smtp"
)

// Config represents the top-level remit.yaml configuration. It is built once
// at run start and passed explicitly to every stage; nothing reads it through
// a global.
type Config struct {
	Search   SearchConfig   `yaml:"search"`
	Author   AuthorConfig   `yaml:"author"`
	Notify   NotifyConfig   `yaml:"notify"`
	Report   ReportConfig   `yaml:"report"`
	Workers  WorkersConfig  `yaml:"workers"`
	Mail     MailConfig     `yaml:"mail"`
	Store    StoreConfig    `yaml:"store"`
	Vouchers VouchersConfig `yaml:"vouchers"`
}

// SearchConfig selects the eligible-payments search.
type SearchConfig struct {
	ID       string `yaml:"id"`
	PageSize int    `yaml:"page_size"`
}

// AuthorConfig is the email author identity for vendor notifications.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// NotifyConfig controls voucher generation.
type NotifyConfig struct {
	PrintTemplate string `yaml:"print_template"`
	RenderFailure string `yaml:"render_failure"`
}

// ReportConfig addresses the operational end-of-run report.
type ReportConfig struct {
	Recipient string `yaml:"recipient"`
}

// WorkersConfig sets per-stage concurrency.
type WorkersConfig struct {
	Normalize int `yaml:"normalize"`
	Notify    int `yaml:"notify"`
}

// MailConfig selects and parameterizes the outbound transport.
type MailConfig struct {
	Mode      string     `yaml:"mode"`
	OutboxDir string     `yaml:"outbox_dir"`
	SMTP      SMTPConfig `yaml:"smtp,omitempty"`
}

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// StoreConfig locates the local payment store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// VouchersConfig controls voucher artifact output.
type VouchersConfig struct {
	Dir          string `yaml:"dir"`
	PDFConverter string `yaml:"pdf_converter,omitempty"`
}

// Default returns a Config with every optional knob filled. The four
// required keys (search.id, author.email, notify.print_template,
// report.recipient) stay empty and must come from the file or flags.
func Default() *Config {
	return &Config{
		Search: SearchConfig{PageSize: 200},
		Author: AuthorConfig{Name: "Accounts Payable"},
		Notify: NotifyConfig{RenderFailure: RenderFailureSendPartial},
		Workers: WorkersConfig{
			Normalize: 4,
			Notify:    2,
		},
		Mail: MailConfig{
			Mode:      MailModeOutbox,
			OutboxDir: "outbox",
		},
		Store:    StoreConfig{Path: "remit.db"},
		Vouchers: VouchersConfig{Dir: "vouchers"},
	}
}

// Load reads a remit.yaml file from disk. Keys absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks the configuration before any record is processed. All
// problems are collected so the failure message names every one of them;
// a run never aborts twice for two different missing keys.
func (c *Config) Validate() error {
	var missing []string
	if c.Search.ID == "" {
		missing = append(missing, "search.id")
	}
	if c.Author.Email == "" {
		missing = append(missing, "author.email")
	}
	if c.Notify.PrintTemplate == "" {
		missing = append(missing, "notify.print_template")
	}
	if c.Report.Recipient == "" {
		missing = append(missing, "report.recipient")
	}

	var invalid []string
	switch c.Notify.RenderFailure {
	case RenderFailureSendPartial, RenderFailureDeferGroup:
	default:
		invalid = append(invalid, fmt.Sprintf("notify.render_failure %q (want %s or %s)",
			c.Notify.RenderFailure, RenderFailureSendPartial, RenderFailureDeferGroup))
	}
	switch c.Mail.Mode {
	case MailModeOutbox:
	case MailModeSMTP:
		if c.Mail.SMTP.Host == "" {
			invalid = append(invalid, "mail.smtp.host (required for smtp mode)")
		}
	default:
		invalid = append(invalid, fmt.Sprintf("mail.mode %q (want %s or %s)",
			c.Mail.Mode, MailModeOutbox, MailModeSMTP))
	}
	if c.Search.PageSize <= 0 {
		invalid = append(invalid, fmt.Sprintf("search.page_size %d (must be positive)", c.Search.PageSize))
	}
	if c.Workers.Normalize <= 0 {
		invalid = append(invalid, fmt.Sprintf("workers.normalize %d (must be positive)", c.Workers.Normalize))
	}
	if c.Workers.Notify <= 0 {
		invalid = append(invalid, fmt.Sprintf("workers.notify %d (must be positive)", c.Workers.Notify))
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required parameter(s): "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, "; "))
	}
	if len(parts) > 0 {
		return fmt.Errorf("configuration: %s", strings.Join(parts, "; "))
	}
	return nil
}
