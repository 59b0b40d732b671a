// Package ai selects and builds the model provider that turns an image and a
// tone into a caption.
package ai

import (
	"fmt"
	"log/slog"
	"strings"

	"captioncraft/caption"
	"captioncraft/gemini"
)

// Provider names a caption backend
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderAzure     Provider = "azure"
)

// DefaultProvider is used when none is configured
const DefaultProvider = ProviderAnthropic

// MaxTokens caps the caption length for every provider
const MaxTokens = 300

// ParseProvider accepts a provider name, case-insensitively. Empty means
// DefaultProvider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultProvider, nil
	case ProviderAnthropic, ProviderGemini, ProviderAzure:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q (use anthropic, gemini or azure)", s)
}

// Settings holds the credentials and model choices for all providers
type Settings struct {
	Provider Provider

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	AzureEndpoint   string
	AzureAPIKey     string
	AzureModel      string
	AzureAPIVersion string

	// MaxRetries for transient provider errors; negative keeps the SDK default
	MaxRetries int
}

// Check reports the first missing credential for the selected provider
func (s Settings) Check() error {
	switch s.Provider {
	case ProviderAnthropic, "":
		if s.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	case ProviderGemini:
		if s.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY not set")
		}
	case ProviderAzure:
		if s.AzureEndpoint == "" {
			return fmt.Errorf("AZURE_OPENAI_ENDPOINT not set")
		}
		if s.AzureAPIKey == "" {
			return fmt.Errorf("AZURE_OPENAI_API_KEY not set")
		}
		if s.AzureModel == "" {
			return fmt.Errorf("AZURE_OPENAI_MODEL not set")
		}
	default:
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	return nil
}

// New builds the captioner for the selected provider
func New(s Settings, logger *slog.Logger) (caption.Captioner, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch s.Provider {
	case ProviderGemini:
		opts := []gemini.ClientOption{
			gemini.WithModel(s.GeminiModel),
			gemini.WithLogger(logger),
		}
		if s.MaxRetries >= 0 {
			opts = append(opts, gemini.WithMaxRetries(s.MaxRetries))
		}
		return gemini.NewClient(s.GeminiAPIKey, opts...)
	case ProviderAzure:
		return NewAzureCaptioner(s.AzureEndpoint, s.AzureAPIKey, s.AzureModel, s.AzureAPIVersion, s.MaxRetries)
	default:
		return NewAnthropicCaptioner(s.AnthropicAPIKey, s.AnthropicModel, s.AnthropicBaseURL, s.MaxRetries), nil
	}
}

// GetAPIKeyHelp returns setup help for the selected provider
func GetAPIKeyHelp(p Provider) string {
	switch p {
	case ProviderGemini:
		return gemini.GetAPIKeyHelp()
	case ProviderAzure:
		return `To caption with Azure OpenAI, you need Azure OpenAI credentials.

Option 1: Create a .env file in the working directory:
  AZURE_OPENAI_ENDPOINT=https://your-resource.openai.azure.com
  AZURE_OPENAI_API_KEY=your-api-key
  AZURE_OPENAI_MODEL=gpt-4o

Option 2: Set environment variables:
  export AZURE_OPENAI_ENDPOINT="https://your-resource.openai.azure.com"
  export AZURE_OPENAI_API_KEY="your-api-key"
  export AZURE_OPENAI_MODEL="gpt-4o"
  export AZURE_OPENAI_API_VERSION="2024-08-01-preview"  # optional

Get these from your Azure OpenAI resource in the Azure Portal.`
	default:
		return `To caption with Anthropic Claude, you need an API key.

1. Go to https://console.anthropic.com/settings/keys
2. Create a key
3. Set the environment variable:

   export ANTHROPIC_API_KEY="your-api-key"

Or add it to your .env file:
   ANTHROPIC_API_KEY=your-api-key

Set CAPTIONCRAFT_PROVIDER=gemini or azure to use another provider.`
	}
}
