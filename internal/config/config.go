package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Tracker    TrackerConfig
	Completion CompletionConfig
	Identity   IdentityConfig
	Prompt     PromptConfig
	Batch      BatchConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the optional function key guard.
type AuthConfig struct {
	FunctionKeyHash string
}

// TrackerConfig holds Azure DevOps connection values.
type TrackerConfig struct {
	OrgURL         string
	PAT            string
	DefaultProject string
}

// CompletionConfig holds Azure OpenAI deployment values and sampling parameters.
type CompletionConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// IdentityConfig holds Microsoft Graph app registration values.
type IdentityConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	AuthorityURL string
	GraphURL     string
}

// PromptConfig points at an optional template override.
type PromptConfig struct {
	TemplatePath string
}

// BatchConfig bounds the batch fan-out.
type BatchConfig struct {
	WindowSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	temperature, err := getEnvAsFloat("AZURE_OPENAI_TEMPERATURE", 0.3)
	if err != nil {
		return nil, err
	}
	topP, err := getEnvAsFloat("AZURE_OPENAI_TOP_P", 0.95)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "uat-router"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "1.0.0"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 0),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			FunctionKeyHash: os.Getenv("AUTH_FUNCTION_KEY_HASH"),
		},
		Tracker: TrackerConfig{
			OrgURL:         strings.TrimRight(os.Getenv("AZURE_DEVOPS_ORG_URL"), "/"),
			PAT:            os.Getenv("AZURE_DEVOPS_PAT"),
			DefaultProject: os.Getenv("AZURE_DEVOPS_PROJECT"),
		},
		Completion: CompletionConfig{
			Endpoint:    strings.TrimRight(os.Getenv("AZURE_OPENAI_ENDPOINT"), "/"),
			APIKey:      os.Getenv("AZURE_OPENAI_API_KEY"),
			Deployment:  os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion:  getEnv("AZURE_OPENAI_API_VERSION", "2024-10-01-preview"),
			MaxTokens:   getEnvAsInt("AZURE_OPENAI_MAX_TOKENS", 3000),
			Temperature: temperature,
			TopP:        topP,
		},
		Identity: IdentityConfig{
			ClientID:     os.Getenv("MICROSOFT_GRAPH_CLIENT_ID"),
			ClientSecret: os.Getenv("MICROSOFT_GRAPH_CLIENT_SECRET"),
			TenantID:     os.Getenv("MICROSOFT_GRAPH_TENANT_ID"),
			AuthorityURL: strings.TrimRight(getEnv("MICROSOFT_GRAPH_AUTHORITY_URL", "https://login.microsoftonline.com"), "/"),
			GraphURL:     strings.TrimRight(getEnv("MICROSOFT_GRAPH_API_URL", "https://graph.microsoft.com/v1.0"), "/"),
		},
		Prompt: PromptConfig{
			TemplatePath: os.Getenv("PROMPT_TEMPLATE_PATH"),
		},
		Batch: BatchConfig{
			WindowSize: getEnvAsInt("BATCH_WINDOW_SIZE", 5),
		},
	}

	return cfg, nil
}

// Validate reports settings the routing pipeline cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Tracker.OrgURL == "" {
		missing = append(missing, "AZURE_DEVOPS_ORG_URL")
	}
	if c.Tracker.PAT == "" {
		missing = append(missing, "AZURE_DEVOPS_PAT")
	}
	if c.Completion.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.Completion.APIKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if c.Completion.Deployment == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Identity.Enabled() && (c.Identity.ClientSecret == "" || c.Identity.TenantID == "") {
		return errors.New("MICROSOFT_GRAPH_CLIENT_SECRET and MICROSOFT_GRAPH_TENANT_ID required when MICROSOFT_GRAPH_CLIENT_ID is set")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsProduction hides diagnostic detail from error responses.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Enabled reports whether identity resolution is configured.
func (i IdentityConfig) Enabled() bool {
	return i.ClientID != ""
}

// TokenURL is the tenant's OAuth2 v2 token endpoint.
func (i IdentityConfig) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", i.AuthorityURL, i.TenantID)
}

// Window returns the batch window, never below one.
func (b BatchConfig) Window() int {
	if b.WindowSize <= 0 {
		return 5
	}
	return b.WindowSize
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
