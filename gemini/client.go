package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"captioncraft/caption"
)

const (
	// BaseURL is the Google AI Studio API base URL
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout for API requests
	DefaultTimeout = 2 * time.Minute

	// MaxOutputTokens caps the caption length
	MaxOutputTokens = 300
)

// Client is the Google Gemini API client. It implements caption.Captioner.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	backoff    []time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if parsed.Host == "" {
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithModel selects the Gemini model. Empty keeps DefaultModel.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the debug logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Google Gemini API client
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    BaseURL,
		model:      DefaultModel,
		maxRetries: 2,
		backoff:    []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string { return c.model }

// Generate produces a caption for img in the given tone, retrying
// rate-limit and server errors.
func (c *Client) Generate(ctx context.Context, img *caption.Image, tone caption.Tone) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("an image is required")
	}

	req := buildRequest(img, tone)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.generateContent(ctx, c.model, req)
		if err == nil {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", emptyResponseError(resp)
			}
			return text, nil
		}
		lastErr = err

		if apiErr, ok := err.(*APIError); !ok || !apiErr.Retryable() {
			return "", err
		}

		if attempt < c.maxRetries {
			wait := c.backoff[len(c.backoff)-1]
			if attempt < len(c.backoff) {
				wait = c.backoff[attempt]
			}
			c.logger.Debug("gemini retry", "attempt", attempt+1, "max", c.maxRetries, "wait", wait, "error", err)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return "", fmt.Errorf("caption failed after %d retries: %w", c.maxRetries, lastErr)
}

func buildRequest(img *caption.Image, tone caption.Tone) *GenerateContentRequest {
	return &GenerateContentRequest{
		SystemInstruction: &Content{
			Parts: []*Part{{Text: caption.SystemPrompt}},
		},
		Contents: []*Content{
			{
				Role: "user",
				Parts: []*Part{
					{
						InlineData: &InlineData{
							MIMEType: img.MediaType,
							Data:     base64.StdEncoding.EncodeToString(img.Data),
						},
					},
					{Text: tone.Prompt()},
				},
			},
		},
		GenerationConfig: &GenerationConfig{
			MaxOutputTokens: intPtr(MaxOutputTokens),
		},
	}
}

func emptyResponseError(resp *GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("request blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		return fmt.Errorf("no caption returned (finish reason %s)", resp.Candidates[0].FinishReason)
	}
	return fmt.Errorf("no caption returned")
}

// generateContent makes an API call to generate content
func (c *Client) generateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Don't log the body, it carries the base64 image
	c.logger.Debug("gemini request", "url", apiURL, "parts", len(req.Contents[0].Parts), "bytes", len(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("gemini response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error.Message == "" {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("API error (status %d)", resp.StatusCode),
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErr.Error.Message,
			Details:    apiErr.Error.Status,
		}
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

func intPtr(i int) *int {
	return &i
}

// GetAPIKeyHelp returns help text for setting up the API key
func GetAPIKeyHelp() string {
	return `To caption with Google Gemini, you need an API key.

1. Go to https://aistudio.google.com/apikey
2. Sign in with your Google account
3. Click "Create API key"
4. Set the environment variable:

   export GEMINI_API_KEY="your-api-key"

Or add it to your .env file:
   GEMINI_API_KEY=your-api-key`
}
