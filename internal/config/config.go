package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	GitHub    GitHubConfig    `yaml:"github"`
	LLM       LLMConfig       `yaml:"llm"`
	Activity  ActivityConfig  `yaml:"activity"`
	Summary   SummaryConfig   `yaml:"summary"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"` // debug, release, test
	LogLevel    string   `yaml:"log_level"`
	FrontendURL string   `yaml:"frontend_url"`
	CORSOrigins []string `yaml:"cors_origins"`
	// AdminLogins may change the runtime settings in system_configs.
	AdminLogins []string `yaml:"admin_logins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTLHours   int    `yaml:"ttl_hours"`
	Secure     bool   `yaml:"secure"`
}

// GitHubConfig holds the OAuth application and API settings.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
	// APIBaseURL is only set for GitHub Enterprise, e.g. https://ghe.example.com/api/v3/
	APIBaseURL string `yaml:"api_base_url"`
	MaxPages   int    `yaml:"max_pages"`
}

// LLMProviderConfig describes one summarization backend. Providers are tried in
// the order they are listed.
type LLMProviderConfig struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"` // gemini, openai, azure, anthropic, ollama
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout"` // seconds
}

type LLMConfig struct {
	Providers []LLMProviderConfig `yaml:"providers"`
}

type ActivityConfig struct {
	FetchConcurrency    int `yaml:"fetch_concurrency"`
	FetchTimeout        int `yaml:"fetch_timeout"` // seconds, 0 disables
	DefaultLookbackDays int `yaml:"default_lookback_days"`
}

type SummaryConfig struct {
	MaxPRBodyLength   int `yaml:"max_pr_body_length"`
	MaxCommitsPerRepo int `yaml:"max_commits_per_repo"`
	MaxPRsPerRepo     int `yaml:"max_prs_per_repo"`
}

type SecurityConfig struct {
	TokenSecret string `yaml:"token_secret"`
	StateSecret string `yaml:"state_secret"`
}

type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	Requests      int  `yaml:"requests"`
	WindowMinutes int  `yaml:"window_minutes"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "3001",
			Mode:        "debug",
			LogLevel:    "info",
			FrontendURL: "http://localhost:5173",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "gitdigest.db",
		},
		Session: SessionConfig{
			CookieName: "gitdigest_session",
			TTLHours:   24 * 7,
		},
		GitHub: GitHubConfig{
			CallbackURL: "http://localhost:3001/api/auth/callback",
			MaxPages:    10,
		},
		Activity: ActivityConfig{
			FetchConcurrency:    8,
			FetchTimeout:        60,
			DefaultLookbackDays: 1,
		},
		Summary: SummaryConfig{
			MaxPRBodyLength:   5000,
			MaxCommitsPerRepo: 500,
			MaxPRsPerRepo:     500,
		},
		Security: SecurityConfig{
			TokenSecret: "gitdigest-token-secret-change-in-production",
			StateSecret: "gitdigest-state-secret-change-in-production",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Requests:      100,
			WindowMinutes: 15,
		},
	}
}

// applyDefaults fills values a partial config file left at zero.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = def.Session.TTLHours
	}
	if c.GitHub.MaxPages <= 0 {
		c.GitHub.MaxPages = def.GitHub.MaxPages
	}
	if c.Activity.FetchConcurrency <= 0 {
		c.Activity.FetchConcurrency = def.Activity.FetchConcurrency
	}
	if c.Activity.DefaultLookbackDays <= 0 {
		c.Activity.DefaultLookbackDays = def.Activity.DefaultLookbackDays
	}
	if c.Summary.MaxPRBodyLength <= 0 {
		c.Summary.MaxPRBodyLength = def.Summary.MaxPRBodyLength
	}
	if c.Summary.MaxCommitsPerRepo <= 0 {
		c.Summary.MaxCommitsPerRepo = def.Summary.MaxCommitsPerRepo
	}
	if c.Summary.MaxPRsPerRepo <= 0 {
		c.Summary.MaxPRsPerRepo = def.Summary.MaxPRsPerRepo
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = def.RateLimit.Requests
	}
	if c.RateLimit.WindowMinutes <= 0 {
		c.RateLimit.WindowMinutes = def.RateLimit.WindowMinutes
	}
	for i := range c.LLM.Providers {
		p := &c.LLM.Providers[i]
		if p.Name == "" {
			p.Name = p.Provider
		}
		if p.Timeout <= 0 {
			p.Timeout = 120
		}
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		c.Server.FrontendURL = frontend
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
	if admins := os.Getenv("ADMIN_LOGINS"); admins != "" {
		c.Server.AdminLogins = splitList(admins)
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secure := os.Getenv("SESSION_SECURE"); secure != "" {
		c.Session.Secure, _ = strconv.ParseBool(secure)
	}
	if id := os.Getenv("GITHUB_CLIENT_ID"); id != "" {
		c.GitHub.ClientID = id
	}
	if secret := os.Getenv("GITHUB_CLIENT_SECRET"); secret != "" {
		c.GitHub.ClientSecret = secret
	}
	if callback := os.Getenv("GITHUB_CALLBACK_URL"); callback != "" {
		c.GitHub.CallbackURL = callback
	}
	if apiURL := os.Getenv("GITHUB_API_URL"); apiURL != "" {
		c.GitHub.APIBaseURL = apiURL
	}
	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		c.Security.TokenSecret = secret
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		c.Security.StateSecret = secret
	}
	if n := os.Getenv("FETCH_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			c.Activity.FetchConcurrency = v
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.setProviderKey("gemini", key, os.Getenv("GEMINI_MODEL"), "")
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.setProviderKey("openai", key, os.Getenv("OPENAI_MODEL"), os.Getenv("OPENAI_BASE_URL"))
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.setProviderKey("anthropic", key, os.Getenv("ANTHROPIC_MODEL"), "")
	}
}

// setProviderKey fills the key of the first provider of the given kind, or
// appends a new provider when none is configured.
func (c *Config) setProviderKey(provider, key, model, baseURL string) {
	for i := range c.LLM.Providers {
		p := &c.LLM.Providers[i]
		if p.Provider != provider {
			continue
		}
		p.APIKey = key
		if model != "" {
			p.Model = model
		}
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		return
	}
	c.LLM.Providers = append(c.LLM.Providers, LLMProviderConfig{
		Name:     provider,
		Provider: provider,
		APIKey:   key,
		Model:    model,
		BaseURL:  baseURL,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
