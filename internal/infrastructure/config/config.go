package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Browser   BrowserConfig
	Scheduler SchedulerConfig
	Suppliers map[string]SupplierConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
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

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// SyncConfig holds the cross-supplier sync pipeline settings.
type SyncConfig struct {
	PageSize        int           // records requested per catalog page
	MaxPages        int           // hard ceiling on pages fetched per run
	PolitenessDelay time.Duration // pause between page fetches
	RequestTimeout  time.Duration // per-request HTTP timeout
	RetryAttempts   int           // attempts for retryable fetch errors
	StaleRunTTL     time.Duration // running sessions older than this are reaped
}

// BrowserConfig holds headless browser settings for rendered storefronts.
type BrowserConfig struct {
	Headless    bool
	UserDataDir string        // persistent profile dir, keeps storefront cookies warm
	NavTimeout  time.Duration // per-navigation deadline
	Language    string        // Accept-Language reported by the browser
	Timezone    string        // IANA timezone reported to pages
}

// SchedulerConfig holds the periodic sync scheduler configuration. Syncs run
// once per day at the configured local time; the loop wakes every
// CheckInterval to see whether the run is due.
type SchedulerConfig struct {
	Enabled           bool
	DailyHour         int // hour of day to start the full sync, 24h clock
	DailyMinute       int
	CheckInterval     time.Duration
	ReaperInterval    time.Duration
	MaxConcurrentJobs int
	JobTimeout        time.Duration
}

// SupplierConfig holds one supplier's connection settings. Which fields are
// required depends on the supplier's source kind; Validate on the adapter
// side rejects what it cannot work with.
type SupplierConfig struct {
	Name     string
	Kind     string // restapi, xmlfeed, shopify, woocommerce, stealth
	Enabled  bool
	BaseURL  string
	FeedURL  string
	APIKey   string
	Username string
	Password string
	PageSize int // overrides sync.page_size for this supplier

	// Formula names the pricing rule for this supplier. Empty picks the
	// conventional rule for the kind.
	Formula        string
	MarkupPercent  float64  // percent, feeds standard_markup
	DiscountPct    float64  // percent, feeds discount_round
	RetailMinusPct float64  // fraction, feeds retail_minus
	Paths          []string // collection or page paths to crawl
	Categories     []string // category slugs for storefront scrapes
	LoginPath      string   // login form path for authenticated portals
	IDPattern      string   // regexp capturing product IDs from request URLs
	APITemplate    string   // format string turning a captured ID into an API URL
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with AUDICO_ prefix (e.g., AUDICO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("AUDICO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			PageSize:        v.GetInt("sync.page_size"),
			MaxPages:        v.GetInt("sync.max_pages"),
			PolitenessDelay: v.GetDuration("sync.politeness_delay"),
			RequestTimeout:  v.GetDuration("sync.request_timeout"),
			RetryAttempts:   v.GetInt("sync.retry_attempts"),
			StaleRunTTL:     v.GetDuration("sync.stale_run_ttl"),
		},
		Browser: BrowserConfig{
			Headless:    v.GetBool("browser.headless"),
			UserDataDir: v.GetString("browser.user_data_dir"),
			NavTimeout:  v.GetDuration("browser.nav_timeout"),
			Language:    v.GetString("browser.language"),
			Timezone:    v.GetString("browser.timezone"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyHour:         v.GetInt("scheduler.daily_hour"),
			DailyMinute:       v.GetInt("scheduler.daily_minute"),
			CheckInterval:     v.GetDuration("scheduler.check_interval"),
			ReaperInterval:    v.GetDuration("scheduler.reaper_interval"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
		},
		Suppliers: loadSuppliers(v),
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSuppliers reads every key under [suppliers.<code>] into a SupplierConfig.
// Supplier codes come from the config file; the code never appears inside the
// block itself, so the map key is authoritative.
func loadSuppliers(v *viper.Viper) map[string]SupplierConfig {
	out := map[string]SupplierConfig{}
	raw := v.GetStringMap("suppliers")

	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		prefix := "suppliers." + code + "."
		sc := SupplierConfig{
			Name:     v.GetString(prefix + "name"),
			Kind:     v.GetString(prefix + "kind"),
			Enabled:  true,
			BaseURL:  v.GetString(prefix + "base_url"),
			FeedURL:  v.GetString(prefix + "feed_url"),
			APIKey:   v.GetString(prefix + "api_key"),
			Username: v.GetString(prefix + "username"),
			Password: v.GetString(prefix + "password"),
			PageSize: v.GetInt(prefix + "page_size"),

			Formula:        v.GetString(prefix + "formula"),
			MarkupPercent:  v.GetFloat64(prefix + "markup_percent"),
			DiscountPct:    v.GetFloat64(prefix + "discount_pct"),
			RetailMinusPct: v.GetFloat64(prefix + "retail_minus_pct"),
			Paths:          v.GetStringSlice(prefix + "paths"),
			Categories:     v.GetStringSlice(prefix + "categories"),
			LoginPath:      v.GetString(prefix + "login_path"),
			IDPattern:      v.GetString(prefix + "id_pattern"),
			APITemplate:    v.GetString(prefix + "api_template"),
		}
		if v.IsSet(prefix + "enabled") {
			sc.Enabled = v.GetBool(prefix + "enabled")
		}
		if sc.Name == "" {
			sc.Name = code
		}
		out[code] = sc
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "audico-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "audico"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 50
	}
	if cfg.Sync.MaxPages == 0 {
		cfg.Sync.MaxPages = 200
	}
	if cfg.Sync.PolitenessDelay == 0 {
		cfg.Sync.PolitenessDelay = 750 * time.Millisecond
	}
	if cfg.Sync.RequestTimeout == 0 {
		cfg.Sync.RequestTimeout = 30 * time.Second
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.StaleRunTTL == 0 {
		cfg.Sync.StaleRunTTL = 2 * time.Hour
	}
	if cfg.Browser.UserDataDir == "" {
		cfg.Browser.UserDataDir = "/tmp/audico-browser-profile"
	}
	if cfg.Browser.NavTimeout == 0 {
		cfg.Browser.NavTimeout = 45 * time.Second
	}
	if cfg.Browser.Language == "" {
		cfg.Browser.Language = "en-ZA"
	}
	if cfg.Browser.Timezone == "" {
		cfg.Browser.Timezone = "Africa/Johannesburg"
	}
	if cfg.Scheduler.DailyHour == 0 && cfg.Scheduler.DailyMinute == 0 {
		// Full syncs run at 03:00 before the store opens.
		cfg.Scheduler.DailyHour = 3
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.ReaperInterval == 0 {
		cfg.Scheduler.ReaperInterval = 15 * time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 2
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 90 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be positive")
	}
	if c.Sync.MaxPages <= 0 {
		return fmt.Errorf("sync.max_pages must be positive")
	}
	if c.Sync.StaleRunTTL < 10*time.Minute {
		return fmt.Errorf("sync.stale_run_ttl must be at least 10 minutes, got %s", c.Sync.StaleRunTTL)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	for code, sc := range c.Suppliers {
		switch sc.Kind {
		case "restapi", "xmlfeed", "shopify", "woocommerce", "stealth":
		case "":
			return fmt.Errorf("suppliers.%s.kind is required", code)
		default:
			return fmt.Errorf("suppliers.%s.kind %q is not a known adapter kind", code, sc.Kind)
		}
		if sc.Kind == "xmlfeed" && sc.FeedURL == "" {
			return fmt.Errorf("suppliers.%s.feed_url is required for xmlfeed suppliers", code)
		}
		if sc.Kind != "xmlfeed" && sc.BaseURL == "" {
			return fmt.Errorf("suppliers.%s.base_url is required for %s suppliers", code, sc.Kind)
		}
		if sc.Kind == "woocommerce" && (sc.Username == "" || sc.Password == "") {
			return fmt.Errorf("suppliers.%s requires username and password for the storefront login", code)
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
