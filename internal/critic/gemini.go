// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/goalwriter/internal/httputil"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend generates text with the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// GeminiOptions tunes NewGeminiBackend. All fields are optional.
type GeminiOptions struct {
	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// NewGeminiBackend returns a backend for model authenticated with apiKey.
func NewGeminiBackend(ctx context.Context, apiKey, model string, opts GeminiOptions) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini backend: %w", ErrConfigurationMissing)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Generate sends one prompt and returns the response text.
func (b *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.ResponseFormat == FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", classifyGenAI(ctx, err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// classifyGenAI maps SDK errors onto the Backend error contract.
func classifyGenAI(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if code, msg, ok := apiErrorCode(err); ok {
		if code == http.StatusTooManyRequests {
			return fmt.Errorf("gemini: %s: %w", msg, httputil.ErrRateLimited)
		}
		return &httputil.StatusError{StatusCode: code, Body: msg}
	}
	return fmt.Errorf("calling Gemini API: %v: %w", err, httputil.ErrTransport)
}

// apiErrorCode extracts the HTTP status from an SDK error in either its value
// or pointer form.
func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
