// Package config loads CaptionCraft settings from defaults, an optional .env
// file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"captioncraft/ai"
	"captioncraft/caption"
	"captioncraft/client"
	"captioncraft/store"

	"github.com/joho/godotenv"
)

type Config struct {
	Client   ClientConfig
	Storage  StorageConfig
	Caption  CaptionConfig
	Server   ServerConfig
	Provider ai.Settings
	Log      LogConfig
}

type ClientConfig struct {
	// APIURL is the CaptionCraft server used by the TUI and the caption command
	APIURL string
	// Direct calls the model provider in-process instead of the server
	Direct bool
}

type StorageConfig struct {
	DataDir        string
	HistoryBackend string
}

type CaptionConfig struct {
	DefaultTone string
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins string
	RateLimit      string
}

type LogConfig struct {
	Level string
	Debug bool
}

func defaults() Config {
	return Config{
		Client: ClientConfig{
			APIURL: client.DefaultBaseURL,
		},
		Storage: StorageConfig{
			DataDir:        defaultDataDir(),
			HistoryBackend: store.BackendFile,
		},
		Caption: CaptionConfig{
			DefaultTone: string(caption.DefaultTone),
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: "*",
			RateLimit:      "10/minute",
		},
		Provider: ai.Settings{
			Provider:        ai.DefaultProvider,
			AnthropicModel:  ai.DefaultAnthropicModel,
			AzureAPIVersion: ai.DefaultAzureAPIVersion,
			MaxRetries:      2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "captioncraft")
	}
	return "captioncraft-data"
}

// Load applies defaults, then the given .env files (".env" when none are
// named; missing files are ignored), then environment variables. Variables
// already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := defaults()
	applyEnvOverrides(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings. Provider credentials are checked
// separately by CheckProvider since only some commands need them.
func (c *Config) Validate() error {
	if _, err := caption.ParseTone(c.Caption.DefaultTone); err != nil {
		return fmt.Errorf("default tone: %w", err)
	}
	switch c.Storage.HistoryBackend {
	case store.BackendFile, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("unknown history backend %q (use file, sqlite or memory)", c.Storage.HistoryBackend)
	}
	p, err := ai.ParseProvider(string(c.Provider.Provider))
	if err != nil {
		return err
	}
	c.Provider.Provider = p
	return nil
}

// Tone returns the configured default tone
func (c Config) Tone() caption.Tone {
	t, err := caption.ParseTone(c.Caption.DefaultTone)
	if err != nil {
		return caption.DefaultTone
	}
	return t
}

// Origins splits the allowed origins list
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LogLevel resolves the slog level. Debug overrides Level.
func (c Config) LogLevel() slog.Level {
	if c.Log.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CheckProvider reports missing credentials for the selected provider along
// with setup help.
func (c Config) CheckProvider() error {
	if err := c.Provider.Check(); err != nil {
		return &ProviderError{Err: err, Help: ai.GetAPIKeyHelp(c.Provider.Provider)}
	}
	return nil
}

// ProviderError is a missing-credentials error carrying setup instructions
type ProviderError struct {
	Err  error
	Help string
}

func (e *ProviderError) Error() string { return e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }
