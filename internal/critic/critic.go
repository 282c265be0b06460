// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package critic renders critic prompts, sends them to a text-generation
// backend, and parses the structured JSON verdicts that come back.
//
// Judge never returns a Go error: every failure (unknown prompt, missing
// configuration, rate limiting, HTTP status, unparseable output) becomes an
// error Result so that callers can record it per goal and move on.
package critic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/httputil"
	"github.com/pdiddy/goalwriter/pkg/types"
)

var (
	// ErrUnknownPromptKind is the cause for a kind with no template.
	ErrUnknownPromptKind = errors.New("unknown prompt kind")

	// ErrJudgmentParse is the cause for output that is not a JSON object
	// of the expected shape.
	ErrJudgmentParse = errors.New("judgment parse failed")

	// ErrRateLimitExceeded is the cause when retries on HTTP 429 ran out.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrConfigurationMissing is the cause when no API key is configured.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrErrorPayload is the cause when the model's JSON carries an
	// "error" key.
	ErrErrorPayload = errors.New("critic reported an error")

	// ErrEmptyContent is returned by backends when a response has no text.
	ErrEmptyContent = errors.New("no content returned")
)

// Result messages, kept identical across backends.
const (
	msgParseFailed    = "JSON parsing failed."
	msgNoContent      = "No content returned from API."
	msgNotConfigured  = "API Key not configured."
	msgRateLimited    = "Rate limit exceeded. Please try again later."
	msgNotJSONObject  = "Response is not a JSON object."
	msgUnknownPrompt  = "Unknown prompt kind: %s"
	msgNetworkFailure = "Request failed: %v"
)

// ResponseFormat tells the backend what to ask the model for.
type ResponseFormat string

// FormatJSON requests a JSON response.
const FormatJSON ResponseFormat = "json"

// Request is what a Backend receives.
type Request struct {
	Prompt         string
	ResponseFormat ResponseFormat
}

// Backend abstracts the text-generation service so tests can supply a mock.
// Implementations map HTTP 429 to httputil.ErrRateLimited, failures without
// a response to httputil.ErrTransport, other statuses to
// *httputil.StatusError, and an empty response to ErrEmptyContent.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Result is the outcome of one Judge call: either a JSON object payload or an
// error message with its cause.
type Result struct {
	Payload json.RawMessage
	Error   string
	Cause   error
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool { return r.Error == "" }

// Err returns nil for a successful result and a *ResultError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ResultError{Message: r.Error, Cause: r.Cause}
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &ResultError{Message: msgParseFailed, Cause: fmt.Errorf("%w: %v", ErrJudgmentParse, err)}
	}
	return nil
}

// MarshalJSON writes the payload, or {"error": message} for an error result.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	return r.Payload, nil
}

func errorResult(msg string, cause error) Result {
	return Result{Error: msg, Cause: cause}
}

// ResultError is the error form of a failed Result.
type ResultError struct {
	Message string
	Cause   error
}

func (e *ResultError) Error() string { return e.Message }

func (e *ResultError) Unwrap() error { return e.Cause }

// Client judges text against goals through a Backend.
type Client struct {
	backend   Backend
	policy    httputil.Policy
	sternness types.Sternness
	log       *zap.Logger
}

// NewClient returns a client calling backend. A nil backend yields a client
// whose every call fails with ErrConfigurationMissing.
func NewClient(backend Backend, cfg types.CriticConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	sternness := cfg.Sternness
	if sternness == "" {
		sternness = types.SternnessStandard
	}
	return &Client{
		backend: backend,
		policy: httputil.Policy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			Logger:     log,
		},
		sternness: sternness,
		log:       log,
	}
}

// Configured reports whether a backend is available.
func (c *Client) Configured() bool { return c != nil && c.backend != nil }

// Sternness returns the strictness passed to the review critic.
func (c *Client) Sternness() types.Sternness { return c.sternness }

// WithSternness returns a client sharing c's backend that reviews with s.
func (c *Client) WithSternness(s types.Sternness) *Client {
	out := *c
	out.sternness = s
	return &out
}

// Judge renders the template for kind with vars, calls the backend with
// retry, and parses the response into a JSON object.
func (c *Client) Judge(ctx context.Context, kind Kind, vars Vars) Result {
	tmpl, ok := Template(kind)
	if !ok {
		c.log.Error("unknown prompt kind", zap.String("kind", string(kind)))
		return errorResult(fmt.Sprintf(msgUnknownPrompt, kind), ErrUnknownPromptKind)
	}
	if !c.Configured() {
		return errorResult(msgNotConfigured, ErrConfigurationMissing)
	}
	if kind == KindReview {
		if _, set := vars[VarSternness]; !set {
			vars = withVar(vars, VarSternness, c.sternness)
		}
	}

	req := Request{Prompt: Render(tmpl, vars), ResponseFormat: FormatJSON}
	var raw string
	err := httputil.Retry(ctx, c.policy, func(ctx context.Context) error {
		var err error
		raw, err = c.backend.Generate(ctx, req)
		return err
	})
	if err != nil {
		res := c.failure(err)
		c.log.Warn("critic call failed",
			zap.String("kind", string(kind)),
			zap.String("result", res.Error),
			zap.Error(err))
		return res
	}

	res := parse(raw)
	if !res.OK() {
		c.log.Warn("critic response rejected",
			zap.String("kind", string(kind)),
			zap.String("result", res.Error))
	}
	return res
}

// failure maps a backend error to an error result.
func (c *Client) failure(err error) Result {
	var statusErr *httputil.StatusError
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return errorResult(msgNotConfigured, err)
	case errors.Is(err, httputil.ErrRateLimited):
		return errorResult(msgRateLimited, fmt.Errorf("%w: %v", ErrRateLimitExceeded, err))
	case errors.As(err, &statusErr):
		return errorResult(statusErr.Error(), err)
	case errors.Is(err, ErrEmptyContent):
		return errorResult(msgNoContent, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorResult(err.Error(), err)
	}
	return errorResult(fmt.Sprintf(msgNetworkFailure, err), err)
}

// parse accepts a JSON object optionally wrapped in a Markdown code fence.
func parse(raw string) Result {
	text := stripFence(raw)
	if text == "" {
		return errorResult(msgNoContent, ErrEmptyContent)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return errorResult(msgParseFailed, fmt.Errorf("%w: %v", ErrJudgmentParse, err))
		}
		return errorResult(msgNotJSONObject, fmt.Errorf("%w: %v", ErrJudgmentParse, err))
	}
	if obj == nil {
		return errorResult(msgNotJSONObject, ErrJudgmentParse)
	}
	if msg, ok := obj["error"]; ok {
		var s string
		if json.Unmarshal(msg, &s) != nil || s == "" {
			s = string(msg)
		}
		return errorResult(s, ErrErrorPayload)
	}
	return Result{Payload: json.RawMessage(text)}
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func withVar(vars Vars, name string, value any) Vars {
	out := make(Vars, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	out[name] = value
	return out
}

// Normalize maps a raw 1-5 score to [0,1]; absent scores map to 0.
func Normalize(score float64) float64 {
	return types.NormalizeScore(score)
}
