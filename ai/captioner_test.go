package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"captioncraft/caption"
)

func testImage() *caption.Image {
	return &caption.Image{Name: "beach.jpg", MediaType: "image/jpeg", Data: []byte("fake jpeg data")}
}

func TestAnthropicCaptioner_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-test" {
			t.Errorf("missing api key header")
		}

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type   string `json:"type"`
					Text   string `json:"text"`
					Source struct {
						Type      string `json:"type"`
						MediaType string `json:"media_type"`
						Data      string `json:"data"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if body.Model != DefaultAnthropicModel || body.MaxTokens != MaxTokens {
			t.Errorf("model/max_tokens = %s/%d", body.Model, body.MaxTokens)
		}
		if len(body.System) != 1 || body.System[0].Text != caption.SystemPrompt {
			t.Errorf("system prompt not sent")
		}
		if len(body.Messages) != 1 || len(body.Messages[0].Content) != 2 {
			t.Errorf("unexpected messages: %+v", body.Messages)
			return
		}
		img, text := body.Messages[0].Content[0], body.Messages[0].Content[1]
		if img.Type != "image" || img.Source.Type != "base64" || img.Source.MediaType != "image/jpeg" {
			t.Errorf("unexpected image block: %+v", img)
		}
		if text.Type != "text" || text.Text != caption.ToneInstagram.Prompt() {
			t.Errorf("unexpected text block: %+v", text)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "Salt in the air ☀️ #beachday"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 12}
		}`))
	}))
	defer server.Close()

	c := NewAnthropicCaptioner("sk-test", "", server.URL, 0)
	got, err := c.Generate(context.Background(), testImage(), caption.ToneInstagram)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if !strings.HasPrefix(got, "Salt in the air") {
		t.Errorf("Generate() = %q", got)
	}
}

func TestAnthropicCaptioner_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	c := NewAnthropicCaptioner("bad", "", server.URL, 0)
	_, err := c.Generate(context.Background(), testImage(), caption.ToneCasual)
	apiErr, ok := err.(*caption.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *caption.APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if !strings.Contains(caption.ErrorMessage(err), "401") {
		t.Errorf("ErrorMessage() = %q", caption.ErrorMessage(err))
	}
}

func TestAzureCaptioner_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != DefaultAzureAPIVersion {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("Api-Key") != "az-key" {
			t.Errorf("missing api-key header")
		}

		var body struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", body.Messages)
			return
		}
		if !strings.Contains(string(body.Messages[1].Content), "data:image/jpeg;base64,") {
			t.Errorf("user message should carry the image data URI: %s", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " Q3 results, delivered. "}}]
		}`))
	}))
	defer server.Close()

	c, err := NewAzureCaptioner(server.URL+"/", "az-key", "gpt-4o", "", 0)
	if err != nil {
		t.Fatalf("NewAzureCaptioner() failed: %v", err)
	}
	got, err := c.Generate(context.Background(), testImage(), caption.ToneProfessional)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if got != "Q3 results, delivered." {
		t.Errorf("Generate() = %q", got)
	}
}

func TestAzureCaptioner_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`))
	}))
	defer server.Close()

	c, _ := NewAzureCaptioner(server.URL, "az-key", "gpt-4o", "", 0)
	if _, err := c.Generate(context.Background(), testImage(), caption.ToneCasual); err == nil {
		t.Error("Generate() should fail with no choices")
	}
}

func TestCaptioners_RequireImage(t *testing.T) {
	az, _ := NewAzureCaptioner("https://x.openai.azure.com", "k", "m", "", 0)
	for _, c := range []caption.Captioner{NewAnthropicCaptioner("k", "", "", 0), az} {
		if _, err := c.Generate(context.Background(), nil, caption.ToneCasual); err == nil {
			t.Errorf("%T.Generate(nil) should fail", c)
		}
	}
}
