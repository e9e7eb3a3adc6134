package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/pkg/errs"
)

const (
	DefaultEvaluatorURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultEvaluatorModel = "openai/gpt-oss-20b"

	evaluatorMaxTokens = 800
	maxUpstreamBody    = 1 << 20
)

const evaluatorSystemPrompt = "You must respond with STRICT JSON. No markdown."

const evaluatorPromptTemplate = `You are an extremely strict and deterministic code evaluator.
You MUST return valid JSON only.
No extra text. No markdown. No explanations before or after.

JSON FORMAT (MANDATORY):
{
  "understanding": "string",
  "test_cases": [
    { "input": "string", "output": "string" }
  ],
  "score": {
    "logic": number,
    "time_complexity": number,
    "space_complexity": number,
    "code_quality": number
  },
  "hints": ["string", "string"]
}

Rules:
- Output MUST be valid JSON.
- The JSON MUST be exactly the same for the same input.
- No randomness. No variation. No creativity.
- Scores should be based ONLY on the provided code.
- ALWAYS be consistent across runs.

Problem:
%s

Language:
%s

Code:
%s
`

// MalformedError is returned when the evaluator answered but not with JSON.
type MalformedError struct {
	Raw string
}

func (e *MalformedError) Error() string { return "evaluator returned invalid JSON" }

func (e *MalformedError) Unwrap() error { return errs.ErrMalformedUpstream }

type EvaluatorOptions struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration

	HTTPClient *http.Client
}

// Evaluator asks an OpenAI-compatible chat completions endpoint to grade
// code and passes its JSON answer through.
type Evaluator struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

func NewEvaluator(opts EvaluatorOptions) *Evaluator {
	if opts.URL == "" {
		opts.URL = DefaultEvaluatorURL
	}
	if opts.Model == "" {
		opts.Model = DefaultEvaluatorModel
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Evaluator{
		url:     opts.URL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		timeout: opts.Timeout,
		http:    hc,
	}
}

// Enabled reports whether an API key is configured.
func (e *Evaluator) Enabled() bool { return e.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *Evaluator) Evaluate(ctx context.Context, req domain.EvaluationRequest) (json.RawMessage, error) {
	if !e.Enabled() {
		return nil, fmt.Errorf("%w: evaluator api key not configured", errs.ErrUnavailable)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: empty code", errs.ErrInvalidInput)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: evaluatorSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(evaluatorPromptTemplate, req.Problem, req.Language, req.Code)},
		},
		Temperature: 0,
		TopP:        1,
		MaxTokens:   evaluatorMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluator: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("evaluator: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %w", errs.ErrUpstream, errs.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", errs.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.WarnContext(ctx, "evaluator rejected request",
			"status", resp.StatusCode, "duration", time.Since(start))
		return nil, fmt.Errorf("%w: evaluator status %d: %s",
			errs.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", errs.ErrUpstream, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: evaluator returned no choices", errs.ErrUpstream)
	}

	raw := stripFences(chat.Choices[0].Message.Content)
	if !json.Valid([]byte(raw)) {
		slog.WarnContext(ctx, "evaluator returned invalid json", "bytes", len(raw))
		return nil, &MalformedError{Raw: raw}
	}

	slog.DebugContext(ctx, "evaluation done", "language", req.Language, "duration", time.Since(start))
	return json.RawMessage(raw), nil
}

// stripFences drops markdown code fences the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
