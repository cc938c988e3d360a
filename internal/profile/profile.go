package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
)

// devJWTSecret signs tokens outside prod mode when no secret is configured.
const devJWTSecret = "askbox-dev-secret"

// Profile is configuration to start main server.
type Profile struct {
	// Completion provider (OpenRouter-compatible protocol)
	LLMAPIKey            string
	LLMBaseURL           string  // default: https://openrouter.ai/api/v1
	LLMDefaultModel      string  // fallback when the requested model is not in the catalog
	LLMTemperature       float64 // default: 0.7
	LLMMaxAttempts       int     // default: 5
	LLMBaseDelaySeconds  int     // linear backoff step, default: 5
	LLMTimeoutSeconds    int     // per-attempt timeout, default: 30
	LLMRequestsPerSecond float64 // outbound throttle, 0 disables it
	LLMReferer           string  // optional OpenRouter attribution
	LLMAppTitle          string

	// Prompt rendering
	Locale   string // fr or en
	TimeZone string // IANA name used for the date in the system prompt

	// Bearer token verification (HS256)
	JWTSecret string

	// Server and storage
	Mode      string
	Addr      string
	DSN       string
	Driver    string
	Version   string
	Data      string
	LogLevel  string
	Port      int
	LogFormat string // text or json
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMConfigured returns true if a provider API key is set.
func (p *Profile) IsLLMConfigured() bool {
	return p.LLMAPIKey != ""
}

// Location returns the configured time zone, falling back to the local one.
func (p *Profile) Location() *time.Location {
	if p.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		slog.Warn("Unknown time zone, using local time", "time_zone", p.TimeZone, "error", err)
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads provider, prompt and auth settings from environment variables.
// Fields already set (e.g. from flags) are kept.
func (p *Profile) FromEnv() {
	p.LLMAPIKey = getEnvOrDefault("ASKBOX_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("ASKBOX_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMDefaultModel = getEnvOrDefault("ASKBOX_LLM_DEFAULT_MODEL", p.LLMDefaultModel)
	p.LLMTemperature = getEnvOrDefaultFloat("ASKBOX_LLM_TEMPERATURE", p.LLMTemperature)
	p.LLMMaxAttempts = getEnvOrDefaultInt("ASKBOX_LLM_MAX_ATTEMPTS", p.LLMMaxAttempts)
	p.LLMBaseDelaySeconds = getEnvOrDefaultInt("ASKBOX_LLM_BASE_DELAY_SECONDS", p.LLMBaseDelaySeconds)
	p.LLMTimeoutSeconds = getEnvOrDefaultInt("ASKBOX_LLM_TIMEOUT_SECONDS", p.LLMTimeoutSeconds)
	p.LLMRequestsPerSecond = getEnvOrDefaultFloat("ASKBOX_LLM_REQUESTS_PER_SECOND", p.LLMRequestsPerSecond)
	p.LLMReferer = getEnvOrDefault("ASKBOX_LLM_REFERER", p.LLMReferer)
	p.LLMAppTitle = getEnvOrDefault("ASKBOX_LLM_APP_TITLE", p.LLMAppTitle)

	p.Locale = getEnvOrDefault("ASKBOX_LOCALE", p.Locale)
	p.TimeZone = getEnvOrDefault("ASKBOX_TIME_ZONE", p.TimeZone)
	p.JWTSecret = getEnvOrDefault("ASKBOX_JWT_SECRET", p.JWTSecret)
	p.LogLevel = getEnvOrDefault("ASKBOX_LOG_LEVEL", p.LogLevel)
	p.LogFormat = getEnvOrDefault("ASKBOX_LOG_FORMAT", p.LogFormat)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Locale == "" {
		p.Locale = "en"
	}
	if p.LLMTemperature <= 0 {
		p.LLMTemperature = 0.7
	}
	if p.JWTSecret == "" {
		if p.Mode == "prod" {
			return errors.New("jwt secret required in prod mode")
		}
		p.JWTSecret = devJWTSecret
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "askbox")
		} else {
			p.Data = "/var/opt/askbox"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if p.Driver == "sqlite" {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("askbox_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}
	return nil
}
