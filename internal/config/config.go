package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A local .env file is loaded
// first (without overriding real environment variables) so credentials can
// live beside the data files.
func New() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/auxmailer/")
	v.AddConfigPath("$HOME/.auxmailer")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("AUXMAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewWithFile creates a configuration instance from an explicit config file
// path. Unlike New, a missing file is an error here.
func NewWithFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("AUXMAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Email transport defaults
	v.SetDefault("email.provider", "sendgrid")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "AUXCT Training Team")
	v.SetDefault("email.reply_to", "")

	// SendGrid defaults
	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("sendgrid.host", "https://api.sendgrid.com")

	// SMTP relay defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.use_tls", true)

	// SES defaults
	v.SetDefault("ses.region", "us-east-1")

	// Send-log defaults
	v.SetDefault("sendlog.enabled", true)
	v.SetDefault("sendlog.type", "sqlite")
	v.SetDefault("sendlog.sqlite_path", "./auxmailer.db")
	v.SetDefault("sendlog.mysql_dsn", "user:password@tcp(localhost:3306)/auxmailer")

	// Archive and template defaults
	v.SetDefault("archive.dir", "./sent_emails")
	v.SetDefault("templates.dir", "./templates")

	// Retry defaults
	v.SetDefault("retry.subject_prefix", "AUXCT Training Reminder")

	// Run-mode defaults
	v.SetDefault("run.dry_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
