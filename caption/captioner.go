package caption

import (
	"context"
	"errors"
	"strings"
)

// GenericFailureMessage is shown when a failure carries no usable detail
const GenericFailureMessage = "Something went wrong"

// Captioner turns an image and tone into caption text. Implementations are
// the HTTP client for a remote CaptionCraft server and the model providers
// used by the server itself.
type Captioner interface {
	Generate(ctx context.Context, img *Image, tone Tone) (string, error)
}

// CaptionerFunc adapts a function to the Captioner interface
type CaptionerFunc func(ctx context.Context, img *Image, tone Tone) (string, error)

// Generate calls f
func (f CaptionerFunc) Generate(ctx context.Context, img *Image, tone Tone) (string, error) {
	return f(ctx, img, tone)
}

// APIError is a failure reported by a captioning service with a
// human-readable detail.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return GenericFailureMessage
}

// ErrorMessage collapses err into the single string shown to the user: the
// service detail when there is one, otherwise the error text, otherwise
// GenericFailureMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return GenericFailureMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if d := strings.TrimSpace(apiErr.Detail); d != "" {
			return d
		}
		return GenericFailureMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericFailureMessage
}
