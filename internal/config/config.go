package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CAREERADVISOR_AI_MODEL.
const EnvPrefix = "CAREERADVISOR"

// Config holds all application configuration.
// API key precedence, highest first:
// 1. Vault (if enabled)
// 2. Config file / CAREERADVISOR_AI_APIKEY
// 3. The variable named by ai.apiKeyEnv (GEMINI_API_KEY by default)
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	configFileUsed string
	envFilesLoaded []string
}

// AIConfig holds completion service configuration.
type AIConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"apiKey"`
	APIKeyEnv       string        `mapstructure:"apiKeyEnv"`
	BaseURL         string        `mapstructure:"baseURL"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxOutputTokens int32         `mapstructure:"maxOutputTokens"`
	UseSystemPrompt bool          `mapstructure:"useSystemPrompt"`
	// JSONMode asks the model for an application/json response. The reply is
	// still read through the extraction chain.
	JSONMode       bool                 `mapstructure:"jsonMode"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	CustomPrompts  PromptConfig         `mapstructure:"customPrompts"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // closed-state count reset
	Timeout          time.Duration `mapstructure:"timeout"`          // open to half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // before tripping is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// PromptConfig overrides the built-in analysis prompts. Inline values win
// over the built-in ones; file contents win over inline values.
type PromptConfig struct {
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
	UserPrompt       string `mapstructure:"userPrompt"`
	UserPromptFile   string `mapstructure:"userPromptFile"`
	WatchFiles       bool   `mapstructure:"watchFiles"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            string          `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration   `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration   `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdownTimeout"`
	MaxRequestSize  int64           `mapstructure:"maxRequestSize"`
	TLSCertFile     string          `mapstructure:"tlsCertFile"`
	TLSKeyFile      string          `mapstructure:"tlsKeyFile"`
	RateLimit       RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxDocumentSize  int64    `mapstructure:"maxDocumentSize"`
	TempDir          string   `mapstructure:"tempDir"`
	// StrictSchema rejects completions whose mapping does not convert
	// cleanly into an analysis result.
	StrictSchema bool `mapstructure:"strictSchema"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console exporter configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadOptions controls where LoadConfig looks for configuration.
type LoadOptions struct {
	// ConfigFile is an explicit config path; empty means search the defaults.
	ConfigFile string
	// EnvFiles are dotenv files loaded before reading the environment.
	// Missing files are ignored. Empty means ".env".
	EnvFiles []string
}

// LoadConfig loads configuration from dotenv files, environment variables
// and a YAML config file.
func LoadConfig(opts LoadOptions) (*Config, error) {
	loadedEnvFiles := loadEnvFiles(opts.EnvFiles)

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/careeradvisor/")
		v.AddConfigPath("$HOME/.careeradvisor")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.ConfigFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.configFileUsed = configFileUsed
	config.envFilesLoaded = loadedEnvFiles

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFiles loads each existing dotenv file without overriding variables
// that are already set, and returns the files that were loaded.
func loadEnvFiles(files []string) []string {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var loaded []string
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateApp(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.Observability.Tracing.SampleRate < 0 || c.Observability.Tracing.SampleRate > 1 {
		return fmt.Errorf("observability.tracing.sampleRate must be between 0 and 1, got %v", c.Observability.Tracing.SampleRate)
	}
	return nil
}

func (c *Config) validateAI() error {
	if c.AI.Provider != "gemini" {
		return fmt.Errorf("unsupported ai.provider %q (supported: gemini)", c.AI.Provider)
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %s", c.AI.Timeout)
	}

	cb := c.AI.CircuitBreaker
	if cb.Enabled {
		if cb.FailureThreshold <= 0 || cb.FailureThreshold > 1 {
			return fmt.Errorf("ai.circuitBreaker.failureThreshold must be in (0, 1], got %v", cb.FailureThreshold)
		}
		if cb.MinRequests == 0 {
			return fmt.Errorf("ai.circuitBreaker.minRequests must be at least 1")
		}
	}

	if c.AI.CustomPrompts.UserPrompt != "" {
		if err := ValidateUserTemplate(c.AI.CustomPrompts.UserPrompt); err != nil {
			return fmt.Errorf("ai.customPrompts.userPrompt: %w", err)
		}
	}
	return nil
}

func (c *Config) validateApp() error {
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid app.logLevel %q", c.App.LogLevel)
	}
	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("app.defaultFormat %q is not one of %v", c.App.DefaultFormat, c.App.SupportedFormats)
	}
	if c.App.MaxDocumentSize <= 0 {
		return fmt.Errorf("app.maxDocumentSize must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.MaxRequestSize < c.App.MaxDocumentSize {
		return fmt.Errorf("server.maxRequestSize (%d) must be at least app.maxDocumentSize (%d)",
			c.Server.MaxRequestSize, c.App.MaxDocumentSize)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("server.tlsCertFile and server.tlsKeyFile must be set together")
	}
	rl := c.Server.RateLimit
	if rl.Enabled && (rl.RequestsPerMin <= 0 || rl.BurstCapacity <= 0) {
		return fmt.Errorf("server.rateLimit requires positive requestsPerMin and burstCapacity")
	}
	return nil
}
