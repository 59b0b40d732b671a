package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captioncraft/caption"
	"captioncraft/intake"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

// DefaultAzureAPIVersion is used when no API version is configured
const DefaultAzureAPIVersion = "2024-08-01-preview"

// AzureCaptioner generates captions with an Azure OpenAI chat deployment
type AzureCaptioner struct {
	client *openai.Client
	model  string
}

// NewAzureCaptioner creates a captioner for the deployment named model
func NewAzureCaptioner(endpoint, apiKey, model, apiVersion string, maxRetries int) (*AzureCaptioner, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT not set")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_API_KEY not set")
	}
	if model == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_MODEL not set")
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	// Ensure endpoint doesn't have trailing slash
	endpoint = strings.TrimSuffix(endpoint, "/")

	opts := []option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	}
	if maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}
	client := openai.NewClient(opts...)

	return &AzureCaptioner{
		client: &client,
		model:  model,
	}, nil
}

// Model returns the deployment name
func (a *AzureCaptioner) Model() string { return a.model }

// Generate sends the image as a data URI with the tone instruction
func (a *AzureCaptioner) Generate(ctx context.Context, img *caption.Image, tone caption.Tone) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("an image is required")
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(caption.SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: intake.Preview(img),
				}),
				openai.TextContentPart(tone.Prompt()),
			}),
		},
		MaxTokens: openai.Int(MaxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &caption.APIError{
				StatusCode: apiErr.StatusCode,
				Detail:     fmt.Sprintf("Azure OpenAI error (status %d)", apiErr.StatusCode),
			}
		}
		return "", fmt.Errorf("AI request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("no response from AI")
	}
	return text, nil
}
