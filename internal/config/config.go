// Package config resolves one run's settings from the environment,
// with optional file and keyring sources, before any I/O happens.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	AppName = "email2rm"

	DefaultIMAPServer  = "imap.gmail.com"
	DefaultMailbox     = "INBOX"
	DefaultDownloadDir = "/tmp/downloaded_pdfs"
	DefaultDestFolder  = "From Email"
	DefaultTokenPath   = "/etc/remarkable/token"
	DefaultSyncFile    = "/tmp/rm_api_sync"
	DefaultLogFile     = "/tmp/rm_api.log"
)

// Config holds the fully resolved settings for one synchronization
// pass. It is built once at startup and passed explicitly; nothing
// reads the environment after Load returns.
type Config struct {
	IMAPServer   string `mapstructure:"imap_server"`
	Username     string `mapstructure:"email_username"`
	Password     string `mapstructure:"email_password"`
	Mailbox      string `mapstructure:"mailbox_to_check"`
	DownloadDir  string `mapstructure:"download_dir"`
	DestFolder   string `mapstructure:"remarkable_dest_folder"`
	Token        string `mapstructure:"remarkable_token"`
	TokenPath    string `mapstructure:"remarkable_token_path"`
	SyncFilePath string `mapstructure:"rm_sync_file_path"`
	LogFilePath  string `mapstructure:"rm_log_file"`
}

// MissingKeyError reports a required setting that is absent or empty
// at construction time.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required configuration key %q is missing", e.Key)
}

// ErrEmptyPassword is returned by Validate when the mail password is
// not provided by any source.
var ErrEmptyPassword = errors.New("email password is required but not provided")

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("imap_server", DefaultIMAPServer)
	v.SetDefault("email_username", "")
	v.SetDefault("email_password", "")
	v.SetDefault("mailbox_to_check", DefaultMailbox)
	v.SetDefault("download_dir", DefaultDownloadDir)
	v.SetDefault("remarkable_dest_folder", DefaultDestFolder)
	v.SetDefault("remarkable_token", "")
	v.SetDefault("remarkable_token_path", DefaultTokenPath)
	v.SetDefault("rm_sync_file_path", DefaultSyncFile)
	v.SetDefault("rm_log_file", DefaultLogFile)
	v.AutomaticEnv()
	return v
}

// Load resolves configuration in precedence order: environment, then
// the optional config file at path, then defaults. When the password
// is still empty afterwards the OS keyring is consulted as a last
// source. No validation happens here; call Validate before using the
// result.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Password == "" && cfg.Username != "" {
		if password, err := keyring.Get(AppName, cfg.Username); err == nil {
			cfg.Password = password
		}
	}

	return cfg, nil
}

// Validate is the single validation gate: it runs once, synchronously,
// before any network action. The first missing required setting wins.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"imap_server", c.IMAPServer},
		{"email_username", c.Username},
		{"email_password", c.Password},
		{"mailbox_to_check", c.Mailbox},
		{"remarkable_dest_folder", c.DestFolder},
	}

	for _, r := range required {
		if r.value != "" {
			continue
		}
		if r.key == "email_password" {
			return ErrEmptyPassword
		}
		return &MissingKeyError{Key: r.key}
	}

	return nil
}

// SetPassword stores the mail password in the OS keyring.
func SetPassword(username, password string) error {
	if username == "" {
		return errors.New("username must be set before storing password")
	}
	return keyring.Set(AppName, username, password)
}

// DeletePassword removes the stored mail password from the OS keyring.
func DeletePassword(username string) error {
	if username == "" {
		return errors.New("username must be set before deleting password")
	}
	return keyring.Delete(AppName, username)
}
