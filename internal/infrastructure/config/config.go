package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	OMS        OMSConfig
	Accounting AccountingConfig
	Export     ExportConfig
	Delivery   DeliveryConfig
	Mail       MailConfig
	Run        RunConfig
	Vendors    map[string]VendorConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// OMSConfig holds order management system API settings
type OMSConfig struct {
	BaseURL     string
	Username    string
	Password    string
	Timeout     time.Duration
	MaxRetries  int
	UseShipping bool // take shipping from the OMS instead of the database
}

// AccountingConfig holds accounting system API settings, including the
// ids of the shared reference entities every invoice uses.
type AccountingConfig struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	ItemRef         string
	TaxItemRef      string
	ShippingItemRef string
	ClassRef        string
	TermRef         string
}

// ExportConfig holds local export file settings
type ExportConfig struct {
	BaseDir string
}

// DeliveryConfig holds export delivery settings. TestCustomer redirects
// every upload into one customer's folders; DryRun logs instead of
// uploading.
type DeliveryConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TestCustomer    string
	DryRun          bool
}

// MailConfig holds SMTP settings for the error report. A non-empty
// OverrideRecipient replaces the whole recipient list.
type MailConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	Recipients        []string
	OverrideRecipient string
}

// RunConfig holds per-run settings
type RunConfig struct {
	ProcessName      string
	AllowedPONumbers []string // empty = no restriction
}

// VendorConfig maps a partner code to its accounting customer
type VendorConfig struct {
	CustomerID string `mapstructure:"customer_id"`
	ShipMethod string `mapstructure:"ship_method"`
	Email      string `mapstructure:"email"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DROPSHIP_ prefix (e.g., DROPSHIP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("DROPSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		OMS: OMSConfig{
			BaseURL:     v.GetString("oms.base_url"),
			Username:    v.GetString("oms.username"),
			Password:    v.GetString("oms.password"),
			Timeout:     v.GetDuration("oms.timeout"),
			MaxRetries:  v.GetInt("oms.max_retries"),
			UseShipping: v.GetBool("oms.use_shipping"),
		},
		Accounting: AccountingConfig{
			BaseURL:         v.GetString("accounting.base_url"),
			Token:           v.GetString("accounting.token"),
			Timeout:         v.GetDuration("accounting.timeout"),
			ItemRef:         v.GetString("accounting.item_ref"),
			TaxItemRef:      v.GetString("accounting.tax_item_ref"),
			ShippingItemRef: v.GetString("accounting.shipping_item_ref"),
			ClassRef:        v.GetString("accounting.class_ref"),
			TermRef:         v.GetString("accounting.term_ref"),
		},
		Export: ExportConfig{
			BaseDir: v.GetString("export.base_dir"),
		},
		Delivery: DeliveryConfig{
			Bucket:          v.GetString("delivery.bucket"),
			Region:          v.GetString("delivery.region"),
			Endpoint:        v.GetString("delivery.endpoint"),
			AccessKeyID:     v.GetString("delivery.access_key_id"),
			SecretAccessKey: v.GetString("delivery.secret_access_key"),
			TestCustomer:    v.GetString("delivery.test_customer"),
			DryRun:          v.GetBool("delivery.dry_run"),
		},
		Mail: MailConfig{
			Host:              v.GetString("mail.host"),
			Port:              v.GetInt("mail.port"),
			Username:          v.GetString("mail.username"),
			Password:          v.GetString("mail.password"),
			From:              v.GetString("mail.from"),
			Recipients:        v.GetStringSlice("mail.recipients"),
			OverrideRecipient: v.GetString("mail.override_recipient"),
		},
		Run: RunConfig{
			ProcessName:      v.GetString("run.process_name"),
			AllowedPONumbers: v.GetStringSlice("run.allowed_po_numbers"),
		},
	}

	if err := v.UnmarshalKey("vendors", &cfg.Vendors); err != nil {
		return nil, fmt.Errorf("error parsing vendors: %w", err)
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dropship-invoicer"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dropship"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.OMS.Timeout == 0 {
		cfg.OMS.Timeout = 30 * time.Second
	}
	if cfg.OMS.MaxRetries == 0 {
		cfg.OMS.MaxRetries = 3
	}
	if cfg.Accounting.Timeout == 0 {
		cfg.Accounting.Timeout = 30 * time.Second
	}
	if cfg.Export.BaseDir == "" {
		cfg.Export.BaseDir = "tmp"
	}
	if cfg.Delivery.Region == "" {
		cfg.Delivery.Region = "us-east-1"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Run.ProcessName == "" {
		cfg.Run.ProcessName = "dropship_invoice_run"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.OMS.MaxRetries < 0 {
		return fmt.Errorf("oms.max_retries cannot be negative")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.OMS.Username == "" || c.OMS.Password == "" {
			return fmt.Errorf("oms.username and oms.password are required in production")
		}
		if c.Accounting.Token == "" {
			return fmt.Errorf("accounting.token is required in production")
		}
		if c.Delivery.DryRun {
			return fmt.Errorf("delivery.dry_run must be false in production")
		}
		if c.Delivery.TestCustomer != "" {
			return fmt.Errorf("delivery.test_customer must be empty in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
