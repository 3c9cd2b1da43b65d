package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, openrouter, ollama) use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, openrouter, ollama
	LLMAPIKey   string // LLM API key
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	Mode    string // "prod", "dev" or "demo"
	Addr    string // bind address
	Port    int    // bind port
	Data    string // data directory
	Driver  string // database driver: sqlite or postgres
	DSN     string // database source name
	Secret  string // JWT signing secret
	Origins string // comma-separated allowed CORS origins
	Version string
}

// Provider default configurations for the LLM.
// Used when TASKDECK_AI_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "openai/gpt-4o",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
// Ollama needs no key, so a configured base URL is enough there.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads AI and auth configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("TASKDECK_AI_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("TASKDECK_AI_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.LLMBaseURL = getEnvOrDefault("TASKDECK_AI_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TASKDECK_AI_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TASKDECK_AI_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	if p.Secret == "" {
		p.Secret = getEnvOrDefault("TASKDECK_SECRET", "")
	}
	if p.Origins == "" {
		p.Origins = getEnvOrDefault("TASKDECK_CORS_ORIGINS", "")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "taskdeck")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/taskdeck"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q (sqlite, postgres)", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("taskdeck_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret required in prod mode (set TASKDECK_SECRET)")
		}
		p.Secret = "taskdeck-insecure-dev-secret"
	}

	return nil
}
