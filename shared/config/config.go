package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"video-scout/internal/apperr"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// DefaultTopics is used when no topic is given on the command line or in the
// config file.
var DefaultTopics = []string{
	"Claude AI tutorials",
	"PySpark tutorials",
	"Databricks tutorials",
}

type Config struct {
	YouTube        YouTubeConfig    `yaml:"youtube"`
	AI             AIConfig         `yaml:"ai"`
	Filter         FilterConfig     `yaml:"filter"`
	Topics         []string         `yaml:"topics"`
	MaxResults     int              `yaml:"max_results"`
	Output         OutputConfig     `yaml:"output"`
	Retry          RetryConfig      `yaml:"retry"`
	RequestTimeout time.Duration    `yaml:"request_timeout"`
	Schedule       string           `yaml:"schedule"`
	Monitoring     MonitoringConfig `yaml:"monitoring"`
	Email          EmailConfig      `yaml:"email"`
	LogLevel       string           `yaml:"log_level"`
}

type YouTubeConfig struct {
	APIKey            string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	RelevanceLanguage string `yaml:"relevance_language"`
	Order             string `yaml:"order"`
	BaseURL           string `yaml:"base_url"`
}

type AIConfig struct {
	Provider          string `yaml:"provider"`
	GeminiAPIKey      string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	OpenAIAPIKey      string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `yaml:"openai_base_url"`
	Model             string `yaml:"model"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type FilterConfig struct {
	Enabled   bool `yaml:"enabled"`
	Threshold int  `yaml:"threshold"`
}

type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// Overrides carries command-line values. Nil fields leave the loaded value
// untouched.
type Overrides struct {
	Topics          []string
	MaxResults      *int
	FilterThreshold *int
	OutputDir       *string
	LogLevel        *string
	Schedule        *string
}

// Load reads the optional YAML file at path, fills secrets from the
// environment (after loading .env) and applies defaults. An empty path means
// CONFIG_FILE or ./config.yaml, either of which may be absent.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NewConfigWrap(fmt.Sprintf("failed to read config file %s", path), err)
		}
		data = nil
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, apperr.NewConfigWrap(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()

	return cfg, nil
}

// parse unmarshals YAML over a Config that already holds the defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		YouTube: YouTubeConfig{
			RelevanceLanguage: "en",
			Order:             "relevance",
		},
		AI: AIConfig{
			Provider:  ProviderGemini,
			MaxTokens: 500,
		},
		Filter:         FilterConfig{Threshold: 7},
		MaxResults:     10,
		Output:         OutputConfig{Dir: "outputs", Formats: []string{FormatMarkdown}},
		Retry:          RetryConfig{MaxRetries: 3, InitialWait: 500 * time.Millisecond, MaxWait: 10 * time.Second},
		RequestTimeout: 30 * time.Second,
		Monitoring:     MonitoringConfig{HealthPort: 8080},
		Email:          EmailConfig{SMTPPort: 587},
		LogLevel:       "info",
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.Topics) == 0 {
		cfg.Topics = append([]string(nil), DefaultTopics...)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.OpenAIAPIKey == "" {
		c.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyProviderDefaults() {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.Model != "" {
		return
	}
	switch c.AI.Provider {
	case ProviderOpenAI:
		c.AI.Model = "gpt-4o-mini"
	default:
		c.AI.Model = "gemini-2.5-flash"
	}
}

// Apply returns a copy of c with the command-line overrides applied. A
// supplied filter threshold turns filtering on.
func (c Config) Apply(o Overrides) *Config {
	if len(o.Topics) > 0 {
		c.Topics = append([]string(nil), o.Topics...)
	}
	if o.MaxResults != nil {
		c.MaxResults = *o.MaxResults
	}
	if o.FilterThreshold != nil {
		c.Filter.Enabled = true
		c.Filter.Threshold = *o.FilterThreshold
	}
	if o.OutputDir != nil {
		c.Output.Dir = *o.OutputDir
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.Schedule != nil {
		c.Schedule = *o.Schedule
	}
	return &c
}

// ScoringAPIKey returns the key for the selected language-model provider.
func (c *Config) ScoringAPIKey() string {
	if c.AI.Provider == ProviderOpenAI {
		return c.AI.OpenAIAPIKey
	}
	return c.AI.GeminiAPIKey
}

func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" {
		return apperr.NewConfig("YouTube API key is required (set YOUTUBE_API_KEY or youtube.api_key)")
	}
	if c.MaxResults <= 0 {
		return apperr.NewConfig(fmt.Sprintf("max results must be positive, got %d", c.MaxResults))
	}
	if c.AI.Provider != ProviderGemini && c.AI.Provider != ProviderOpenAI {
		return apperr.NewConfig(fmt.Sprintf("unknown ai provider %q (want %s or %s)", c.AI.Provider, ProviderGemini, ProviderOpenAI))
	}
	if c.Filter.Enabled {
		if c.Filter.Threshold < 0 || c.Filter.Threshold > 10 {
			return apperr.NewConfig(fmt.Sprintf("filter threshold must be between 0 and 10, got %d", c.Filter.Threshold))
		}
		if c.ScoringAPIKey() == "" {
			envName := "GEMINI_API_KEY"
			if c.AI.Provider == ProviderOpenAI {
				envName = "OPENAI_API_KEY"
			}
			return apperr.NewConfig(fmt.Sprintf("%s is required when filtering is enabled", envName))
		}
	}
	if c.Output.Dir == "" {
		return apperr.NewConfig("output directory must not be empty")
	}
	for _, f := range c.Output.Formats {
		if f != FormatMarkdown && f != FormatHTML {
			return apperr.NewConfig(fmt.Sprintf("unknown output format %q", f))
		}
	}
	if len(c.Topics) == 0 {
		return apperr.NewConfig("at least one topic is required")
	}
	if c.Email.Enabled {
		if c.Email.Username == "" || c.Email.Password == "" {
			return apperr.NewConfig("email username and password are required when email is enabled (set EMAIL_USERNAME and EMAIL_PASSWORD)")
		}
		if c.Email.SMTPServer == "" || c.Email.ToEmail == "" {
			return apperr.NewConfig("email.smtp_server and email.to_email are required when email is enabled")
		}
	}
	return nil
}
