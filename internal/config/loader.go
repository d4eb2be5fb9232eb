package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "waycms.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// CLIFlags holds optional command-line overrides. Nil means unset.
type CLIFlags struct {
	Port       *string
	LogLevel   *string
	DSN        *string
	SitesDir   *string
	BackupDir  *string
	ConfigPath *string
}

// ParseFlags parses command-line arguments into CLIFlags.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("waycms", flag.ContinueOnError)

	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "postgres connection string")
	sitesDir := fs.String("sites-dir", "", "root directory of managed sites")
	backupDir := fs.String("backup-dir", "", "directory for backup archives")
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	if *port != "" {
		flags.Port = port
	}
	if *logLevel != "" {
		flags.LogLevel = logLevel
	}
	if *dsn != "" {
		flags.DSN = dsn
	}
	if *sitesDir != "" {
		flags.SitesDir = sitesDir
	}
	if *backupDir != "" {
		flags.BackupDir = backupDir
	}
	if *configPath != "" {
		flags.ConfigPath = configPath
	}
	return flags, nil
}

// LoadWithCLI loads configuration with the full hierarchy:
// defaults < YAML < ENV < CLI flags. Returns the resolved config path.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}

	return &cfg, yamlPath, nil
}

// applyCLI overlays non-nil CLI flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.SitesDir != nil {
		cfg.Content.SitesDir = *flags.SitesDir
	}
	if flags.BackupDir != nil {
		cfg.Backup.Dir = *flags.BackupDir
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "WAYCMS_PORT")
	setString(&cfg.Server.CORSOrigin, "WAYCMS_CORS_ORIGIN")
	setString(&cfg.Server.BaseURL, "WAYCMS_BASE_URL")
	setFloat64(&cfg.Server.RateLimitRPS, "WAYCMS_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "WAYCMS_RATE_LIMIT_BURST")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "WAYCMS_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "WAYCMS_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "WAYCMS_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "WAYCMS_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "WAYCMS_PG_HEALTH_CHECK")

	setString(&cfg.Content.SitesDir, "WAYCMS_SITES_DIR")
	setInt64(&cfg.Content.MaxFileBytes, "WAYCMS_MAX_FILE_BYTES")
	setInt(&cfg.Content.ScanWorkers, "WAYCMS_SCAN_WORKERS")

	setString(&cfg.Backup.Dir, "WAYCMS_BACKUP_DIR")
	setInt(&cfg.Backup.ScheduleHour, "WAYCMS_BACKUP_HOUR")
	setInt(&cfg.Backup.Retention.DailyKeep, "WAYCMS_RETAIN_DAILY")
	setInt(&cfg.Backup.Retention.WeeklyKeep, "WAYCMS_RETAIN_WEEKLY")
	setInt(&cfg.Backup.Retention.MonthlyKeep, "WAYCMS_RETAIN_MONTHLY")

	setBool(&cfg.Auth.Enabled, "WAYCMS_AUTH_ENABLED")
	setInt(&cfg.Auth.BcryptCost, "WAYCMS_BCRYPT_COST")
	setDuration(&cfg.Auth.SessionTTL, "WAYCMS_SESSION_TTL")
	setDuration(&cfg.Auth.MagicLinkTTL, "WAYCMS_MAGIC_LINK_TTL")

	setString(&cfg.Email.Host, "WAYCMS_SMTP_HOST")
	setInt(&cfg.Email.Port, "WAYCMS_SMTP_PORT")
	setString(&cfg.Email.User, "WAYCMS_SMTP_USER")
	setString(&cfg.Email.Password, "WAYCMS_SMTP_PASSWORD")
	setString(&cfg.Email.From, "WAYCMS_SMTP_FROM")
	setString(&cfg.Email.FromName, "WAYCMS_SMTP_FROM_NAME")

	setInt64(&cfg.Cache.MaxSizeMB, "WAYCMS_CACHE_SIZE_MB")

	setString(&cfg.Logging.Level, "WAYCMS_LOG_LEVEL")
	setString(&cfg.Logging.Service, "WAYCMS_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "WAYCMS_LOG_ASYNC")
	setInt(&cfg.Logging.AsyncBuffer, "WAYCMS_LOG_ASYNC_BUFFER")
	setInt(&cfg.Logging.AsyncWorkers, "WAYCMS_LOG_ASYNC_WORKERS")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.RateLimitRPS <= 0 {
		return errors.New("server.rate_limit_rps must be > 0")
	}
	if cfg.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Content.SitesDir == "" {
		return errors.New("content.sites_dir is required")
	}
	if cfg.Content.MaxFileBytes < 1 {
		return errors.New("content.max_file_bytes must be >= 1")
	}
	if cfg.Content.ScanWorkers < 1 {
		return errors.New("content.scan_workers must be >= 1")
	}
	if cfg.Backup.Dir == "" {
		return errors.New("backup.dir is required")
	}
	if cfg.Backup.ScheduleHour < 0 || cfg.Backup.ScheduleHour > 23 {
		return errors.New("backup.schedule_hour must be between 0 and 23")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	if cfg.Logging.Async {
		if cfg.Logging.AsyncBuffer < 1 {
			return errors.New("logging.async_buffer must be >= 1")
		}
		if cfg.Logging.AsyncWorkers < 1 {
			return errors.New("logging.async_workers must be >= 1")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
