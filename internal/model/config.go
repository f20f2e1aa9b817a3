package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// IMAPConfig holds the connection settings for the watched mailbox.
type IMAPConfig struct {
	// Host is the IMAP server hostname.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the IMAP server port (993 for IMAPS).
	Port int `mapstructure:"port" yaml:"port"`

	// Folder is the mailbox folder to poll for invoices.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// Username is the account login name.
	Username string `mapstructure:"username" yaml:"username"`

	// Password is the account password. It may be a literal value,
	// an "${ENV_VAR}" reference, or a "keyring:<key>" reference; see
	// the credential package.
	Password string `mapstructure:"password" yaml:"password"`

	// TLS selects implicit TLS (IMAPS). When false the connection is
	// upgraded with STARTTLS.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// PollConfig holds the timer and backoff settings for the mail poller.
type PollConfig struct {
	IntervalSec       int `mapstructure:"interval_sec" yaml:"interval_sec"`
	BackoffInitialSec int `mapstructure:"backoff_initial_sec" yaml:"backoff_initial_sec"`
	BackoffFactor     int `mapstructure:"backoff_factor" yaml:"backoff_factor"`
	BackoffMaxSec     int `mapstructure:"backoff_max_sec" yaml:"backoff_max_sec"`
}

// Interval returns the normal polling interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// ArchiveConfig holds the settings for the invoice classifier.
type ArchiveConfig struct {
	// BaseDir is the root of the dated archive tree.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`

	// RulesPath is the JSON file holding the per-sender rename rules.
	RulesPath string `mapstructure:"rules_path" yaml:"rules_path"`

	// IgnorePath is the JSON file holding filename ignore patterns,
	// maintained by the UI.
	IgnorePath string `mapstructure:"ignore_path" yaml:"ignore_path"`
}

// LogConfig holds the file logging settings.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the top-level application configuration.
type Config struct {
	IMAP IMAPConfig `mapstructure:"imap" yaml:"imap"`
	Poll PollConfig `mapstructure:"poll" yaml:"poll"`

	// DownloadDir is the landing directory where new attachments are
	// deposited before classification.
	DownloadDir string `mapstructure:"download_dir" yaml:"download_dir"`

	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`

	// LedgerPath is the newline-delimited file of processed message UIDs.
	LedgerPath string `mapstructure:"ledger_path" yaml:"ledger_path"`

	// HistoryPath is the SQLite database recording poll runs and
	// per-file activity.
	HistoryPath string `mapstructure:"history_path" yaml:"history_path"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/invoicewatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "invoicewatch", "config.yaml")
}

// defaultDataDir returns the directory used for default state file
// locations (ledger, history, log).
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "invoicewatch")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Missing keys resolve to documented defaults; a missing file is an error,
// since a mailbox cannot be polled without credentials.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	dataDir := defaultDataDir()
	configDir := filepath.Dir(path)

	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.folder", "Invoices")
	v.SetDefault("imap.tls", true)
	v.SetDefault("poll.interval_sec", 600)
	v.SetDefault("poll.backoff_initial_sec", 60)
	v.SetDefault("poll.backoff_factor", 2)
	v.SetDefault("poll.backoff_max_sec", 3600)
	v.SetDefault("archive.rules_path", filepath.Join(configDir, "invoices_config.json"))
	v.SetDefault("archive.ignore_path", filepath.Join(configDir, "invoices_ignore.json"))
	v.SetDefault("ledger_path", filepath.Join(dataDir, "processed_uids.txt"))
	v.SetDefault("history_path", filepath.Join(dataDir, "history.db"))
	v.SetDefault("log.file", filepath.Join(dataDir, "invoicewatch.log"))
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	// The archive tree defaults to the landing directory, matching the
	// original single-folder deployment.
	if cfg.Archive.BaseDir == "" {
		cfg.Archive.BaseDir = cfg.DownloadDir
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if c.IMAP.Username == "" {
		return fmt.Errorf("imap.username is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}
	if c.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll.interval_sec must be positive")
	}
	return nil
}
