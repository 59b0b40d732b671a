package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"captioncraft/caption"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicCaptioner generates captions with the Anthropic Messages API
type AnthropicCaptioner struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCaptioner creates a captioner. Empty model and baseURL use the
// defaults; negative maxRetries keeps the SDK default.
func NewAnthropicCaptioner(apiKey, model, baseURL string, maxRetries int) *AnthropicCaptioner {
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}

	return &AnthropicCaptioner{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Model returns the configured model name
func (a *AnthropicCaptioner) Model() string { return a.model }

// Generate sends the image and the tone instruction and returns the text reply
func (a *AnthropicCaptioner) Generate(ctx context.Context, img *caption.Image, tone caption.Tone) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("an image is required")
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: caption.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Data)),
				anthropic.NewTextBlock(tone.Prompt()),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &caption.APIError{
				StatusCode: apiErr.StatusCode,
				Detail:     fmt.Sprintf("Anthropic API error (status %d)", apiErr.StatusCode),
			}
		}
		return "", fmt.Errorf("AI request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no response from AI")
	}
	return text, nil
}
