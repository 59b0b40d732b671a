package config

import (
	"fmt"
	"os"
	"strconv"

	"captioncraft/ai"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

// specs are applied in order, so GEMINI_API_KEY wins over GOOGLE_API_KEY
var specs = []keySpec{
	{env: "CAPTIONCRAFT_API_URL", typ: kString, apply: func(cfg *Config, v any) { cfg.Client.APIURL = v.(string) }},
	{env: "CAPTIONCRAFT_DIRECT", typ: kBool, apply: func(cfg *Config, v any) { cfg.Client.Direct = v.(bool) }},
	{env: "CAPTIONCRAFT_DATA_DIR", typ: kString, apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) }},
	{env: "CAPTIONCRAFT_HISTORY_BACKEND", typ: kString, apply: func(cfg *Config, v any) { cfg.Storage.HistoryBackend = v.(string) }},
	{env: "CAPTIONCRAFT_DEFAULT_TONE", typ: kString, apply: func(cfg *Config, v any) { cfg.Caption.DefaultTone = v.(string) }},
	{env: "CAPTIONCRAFT_SERVER_ADDR", typ: kString, apply: func(cfg *Config, v any) { cfg.Server.Addr = v.(string) }},
	{env: "CAPTIONCRAFT_ALLOWED_ORIGINS", typ: kString, apply: func(cfg *Config, v any) { cfg.Server.AllowedOrigins = v.(string) }},
	{env: "CAPTIONCRAFT_RATE_LIMIT", typ: kString, apply: func(cfg *Config, v any) { cfg.Server.RateLimit = v.(string) }},
	{env: "CAPTIONCRAFT_PROVIDER", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.Provider = ai.Provider(v.(string)) }},
	{env: "CAPTIONCRAFT_MAX_RETRIES", typ: kInt, apply: func(cfg *Config, v any) { cfg.Provider.MaxRetries = v.(int) }},
	{env: "ANTHROPIC_API_KEY", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AnthropicAPIKey = v.(string) }},
	{env: "ANTHROPIC_BASE_URL", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AnthropicBaseURL = v.(string) }},
	{env: "CAPTIONCRAFT_ANTHROPIC_MODEL", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AnthropicModel = v.(string) }},
	{env: "GOOGLE_API_KEY", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.GeminiAPIKey = v.(string) }},
	{env: "GEMINI_API_KEY", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.GeminiAPIKey = v.(string) }},
	{env: "CAPTIONCRAFT_GEMINI_MODEL", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.GeminiModel = v.(string) }},
	{env: "AZURE_OPENAI_ENDPOINT", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AzureEndpoint = v.(string) }},
	{env: "AZURE_OPENAI_API_KEY", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AzureAPIKey = v.(string) }},
	{env: "AZURE_OPENAI_MODEL", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AzureModel = v.(string) }},
	{env: "AZURE_OPENAI_API_VERSION", typ: kString, apply: func(cfg *Config, v any) { cfg.Provider.AzureAPIVersion = v.(string) }},
	{env: "CAPTIONCRAFT_LOG_LEVEL", typ: kString, apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) }},
	{env: "CAPTIONCRAFT_DEBUG", typ: kBool, apply: func(cfg *Config, v any) { cfg.Log.Debug = v.(bool) }},
}

// EnvVars lists every variable Load reads
func EnvVars() []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.env)
	}
	return out
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	for _, s := range specs {
		raw := getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
