package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	SearchEngineDuckDuckGo = "duckduckgo"
	SearchEngineBing       = "bing"
)

var (
	ErrMissingCredential = errors.New("completion provider credential is missing")
	ErrInvalid           = errors.New("invalid configuration")
)

type Config struct {
	Provider string `env:"COMPLETION_PROVIDER" envDefault:"openai"`

	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	OpenAIModel           string `env:"OPENAI_MODEL"            envDefault:"gpt-5-mini"`
	OpenAIReasoningEffort string `env:"OPENAI_REASONING_EFFORT" envDefault:"low"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"   envDefault:"claude-sonnet-4-5"`

	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`

	SearchEngine     string        `env:"SEARCH_ENGINE"     envDefault:"duckduckgo"`
	SearchCandidates int           `env:"SEARCH_CANDIDATES" envDefault:"10"`
	MaxEvidence      int           `env:"MAX_EVIDENCE"      envDefault:"10"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT"     envDefault:"5s"`
	PaceMin          time.Duration `env:"PACE_MIN"          envDefault:"2s"`
	PaceMax          time.Duration `env:"PACE_MAX"          envDefault:"5s"`
	RespectRobots    bool          `env:"RESPECT_ROBOTS"    envDefault:"false"`
	UserAgent        string        `env:"USER_AGENT"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`
}

// LoadDotEnv loads .env into the process environment if the file exists.
// Variables that are already set win.
func LoadDotEnv(paths ...string) (bool, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	err := godotenv.Load(paths...)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("load env file: %w", err)
}

func Load() (Config, error) {
	return LoadFromEnvironment(nil)
}

// LoadFromEnvironment parses cfg from the given variables, or from the
// process environment when vars is nil.
func LoadFromEnvironment(vars map[string]string) (Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.SearchEngine = strings.ToLower(strings.TrimSpace(c.SearchEngine))
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.AnthropicAPIKey = strings.TrimSpace(c.AnthropicAPIKey)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.OpenAIReasoningEffort = strings.ToLower(strings.TrimSpace(c.OpenAIReasoningEffort))
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w (envVar = OPENAI_API_KEY)", ErrMissingCredential)
		}
		if strings.TrimSpace(c.OpenAIModel) == "" {
			return fmt.Errorf("%w: OPENAI_MODEL is empty", ErrInvalid)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w (envVar = ANTHROPIC_API_KEY)", ErrMissingCredential)
		}
		if strings.TrimSpace(c.AnthropicModel) == "" {
			return fmt.Errorf("%w: ANTHROPIC_MODEL is empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported completion provider %q", ErrInvalid, c.Provider)
	}

	switch c.SearchEngine {
	case SearchEngineDuckDuckGo, SearchEngineBing:
	default:
		return fmt.Errorf("%w: unsupported search engine %q", ErrInvalid, c.SearchEngine)
	}

	var errs []error
	if c.SearchCandidates < 1 {
		errs = append(errs, fmt.Errorf("%w: SEARCH_CANDIDATES must be >= 1", ErrInvalid))
	}
	if c.MaxEvidence < 1 {
		errs = append(errs, fmt.Errorf("%w: MAX_EVIDENCE must be >= 1", ErrInvalid))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: FETCH_TIMEOUT must be positive", ErrInvalid))
	}
	if c.CompletionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: COMPLETION_TIMEOUT must be positive", ErrInvalid))
	}
	if c.PaceMin < 0 || c.PaceMax < c.PaceMin {
		errs = append(errs, fmt.Errorf("%w: need 0 <= PACE_MIN <= PACE_MAX", ErrInvalid))
	}

	return errors.Join(errs...)
}
