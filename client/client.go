// Package client talks to a CaptionCraft server over HTTP
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"captioncraft/caption"
)

const (
	// DefaultBaseURL is where `captioncraft serve` listens by default
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout for caption requests; model calls on large images are slow
	DefaultTimeout = 2 * time.Minute

	captionPath = "/api/caption"
	healthPath  = "/api/health"
)

// Client implements caption.Captioner against the CaptionCraft HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

// Event describes one finished request, for activity displays
type Event struct {
	Method     string
	URL        string
	StatusCode int
	Latency    time.Duration
	BytesSent  int
	Err        error
}

// Observer is notified after every request
type Observer func(Event)

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets the server base URL. Invalid URLs are ignored.
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

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a callback run after every request
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the server at DefaultBaseURL unless overridden
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured server URL
func (c *Client) BaseURL() string { return c.baseURL }

type captionResponse struct {
	Caption string `json:"caption"`
	Tone    string `json:"tone"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Generate uploads img with tone and returns the caption. Non-success
// responses become *caption.APIError carrying the server's detail text.
func (c *Client) Generate(ctx context.Context, img *caption.Image, tone caption.Tone) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image selected")
	}

	body, contentType, err := encodeForm(img, tone)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	apiURL := c.baseURL + captionPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("caption request", "url", apiURL, "tone", tone, "image", img.Name, "bytes", len(img.Data))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	ev := Event{Method: http.MethodPost, URL: apiURL, BytesSent: len(body)}
	if err != nil {
		ev.Latency, ev.Err = time.Since(start), err
		c.notify(ev)
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	ev.StatusCode, ev.Latency = resp.StatusCode, time.Since(start)
	if err != nil {
		ev.Err = err
		c.notify(ev)
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("caption response", "status", resp.StatusCode, "latency", ev.Latency)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &caption.APIError{StatusCode: resp.StatusCode, Detail: parseDetail(respBody)}
		ev.Err = apiErr
		c.notify(ev)
		return "", apiErr
	}

	var result captionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		ev.Err = err
		c.notify(ev)
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	c.notify(ev)
	return result.Caption, nil
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed (status %d)", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status != "ok" {
		return fmt.Errorf("health check returned unexpected body")
	}
	return nil
}

func (c *Client) notify(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

// encodeForm builds the multipart body: an "image" file part carrying the
// image media type and a "tone" field.
func encodeForm(img *caption.Image, tone caption.Tone) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := img.Name
	if name == "" {
		name = "image"
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("tone", string(tone)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// parseDetail extracts the "detail" field of an error body. Validation errors
// from some servers carry a list of objects with "msg" fields instead of a
// string; those are joined.
func parseDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(er.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(er.Detail, &items); err == nil {
		var msgs []string
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
