// Package config loads server settings from flags, the environment and an
// optional config file.
package config

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/viper"

	"gitingest-mcp/server/internal/analyzer"
	"gitingest-mcp/server/internal/ingest"
)

// EnvPrefix prefixes every environment variable, e.g. GITINGEST_PORT.
const EnvPrefix = "GITINGEST"

// Keys.
const (
	KeyPort           = "port"
	KeyDefaultBranch  = "default_branch"
	KeyAnalyzeTimeout = "analyze_timeout"
	KeyTokenLimit     = "token_limit"
	KeyCharsPerToken  = "chars_per_token"
	KeyTokenPassing   = "token_passing"
	KeyGitHubToken    = "github_token"
	KeyAuthSecret     = "auth_secret"
	KeyRateLimit      = "rate_limit"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyOTelEndpoint   = "otel_endpoint"
	KeyOTelInsecure   = "otel_insecure"
	KeyMetricsEnabled = "metrics_enabled"
	KeyMaxFiles       = "max_files"
	KeyMaxFileSize    = "max_file_size"
)

// legacyEnv maps keys to the unprefixed variable names deployments already
// set.
var legacyEnv = map[string]string{
	KeyPort:        "PORT",
	KeyGitHubToken: "GITHUB_TOKEN",
}

// Config is the resolved server configuration.
type Config struct {
	Port           int           `mapstructure:"port"`
	DefaultBranch  string        `mapstructure:"default_branch"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout"`
	TokenLimit     int           `mapstructure:"token_limit"`
	CharsPerToken  int           `mapstructure:"chars_per_token"`
	TokenPassing   string        `mapstructure:"token_passing"`
	GitHubToken    string        `mapstructure:"github_token"`
	AuthSecret     string        `mapstructure:"auth_secret"`
	RateLimit      int           `mapstructure:"rate_limit"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	OTelEndpoint   string        `mapstructure:"otel_endpoint"`
	OTelInsecure   bool          `mapstructure:"otel_insecure"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	MaxFiles       int           `mapstructure:"max_files"`
	MaxFileSize    int64         `mapstructure:"max_file_size"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 8000)
	v.SetDefault(KeyDefaultBranch, analyzer.DefaultBranch)
	v.SetDefault(KeyAnalyzeTimeout, analyzer.DefaultTimeout)
	v.SetDefault(KeyTokenLimit, analyzer.DefaultTokenLimit)
	v.SetDefault(KeyCharsPerToken, analyzer.DefaultCharsPerToken)
	v.SetDefault(KeyTokenPassing, string(analyzer.TokenPassingExplicit))
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyAuthSecret, "")
	v.SetDefault(KeyRateLimit, 10)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyOTelEndpoint, "")
	v.SetDefault(KeyOTelInsecure, false)
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyMaxFiles, ingest.DefaultMaxFiles)
	v.SetDefault(KeyMaxFileSize, ingest.DefaultMaxFileSize)
}

// Load resolves the configuration from v. Flags bound on v win over the
// environment, which wins over file (when non-empty) and defaults.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.TokenPassing = strings.ToLower(strings.TrimSpace(cfg.TokenPassing))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.Errorf("%s must be between 1 and 65535, got %d", KeyPort, c.Port))
	}
	if strings.TrimSpace(c.DefaultBranch) == "" {
		errs = append(errs, errors.Errorf("%s must not be empty", KeyDefaultBranch))
	}
	if c.AnalyzeTimeout <= 0 {
		errs = append(errs, errors.Errorf("%s must be positive, got %s", KeyAnalyzeTimeout, c.AnalyzeTimeout))
	}
	if c.TokenLimit <= 0 {
		errs = append(errs, errors.Errorf("%s must be positive, got %d", KeyTokenLimit, c.TokenLimit))
	}
	if c.CharsPerToken <= 0 {
		errs = append(errs, errors.Errorf("%s must be positive, got %d", KeyCharsPerToken, c.CharsPerToken))
	}
	switch analyzer.TokenPassing(c.TokenPassing) {
	case analyzer.TokenPassingExplicit, analyzer.TokenPassingEnv:
	default:
		errs = append(errs, errors.Errorf("%s must be %q or %q, got %q",
			KeyTokenPassing, analyzer.TokenPassingExplicit, analyzer.TokenPassingEnv, c.TokenPassing))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.Errorf("%s must not be negative, got %d", KeyRateLimit, c.RateLimit))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, errors.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}
	if c.MaxFiles <= 0 {
		errs = append(errs, errors.Errorf("%s must be positive, got %d", KeyMaxFiles, c.MaxFiles))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.Errorf("%s must be positive, got %d", KeyMaxFileSize, c.MaxFileSize))
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), "invalid configuration")
	}
	return nil
}

// AnalyzerConfig returns the analyzer settings.
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		DefaultBranch: c.DefaultBranch,
		Timeout:       c.AnalyzeTimeout,
		Policy: analyzer.SizePolicy{
			CharsPerToken: c.CharsPerToken,
			TokenLimit:    c.TokenLimit,
		},
		TokenPassing: analyzer.TokenPassing(c.TokenPassing),
		DefaultToken: c.GitHubToken,
	}
}

// IngestOptions returns the git ingestor settings.
func (c *Config) IngestOptions() ingest.GitOptions {
	return ingest.GitOptions{
		MaxFiles:    c.MaxFiles,
		MaxFileSize: c.MaxFileSize,
		EnvToken:    analyzer.TokenPassing(c.TokenPassing) == analyzer.TokenPassingEnv,
	}
}
