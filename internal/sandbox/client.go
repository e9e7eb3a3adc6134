// Package sandbox is a client for a Judge0-compatible code execution service.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cwrk-planet/codecollab/pkg/errs"
)

const maxErrorBody = 4 << 10

type Options struct {
	URL     string // submissions endpoint, e.g. https://judge0-ce.p.rapidapi.com/submissions
	Host    string // X-RapidAPI-Host, only sent together with APIKey
	APIKey  string
	Timeout time.Duration // transport-level cap; callers bound each call with ctx

	HTTPClient *http.Client
}

type Submission struct {
	Source     string `json:"source_code"`
	Stdin      string `json:"stdin"`
	LanguageID int    `json:"language_id"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Verdict is the sandbox's answer. Judge0 sends null for empty streams,
// which decodes to "".
type Verdict struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	Message       string  `json:"message"`
	Status        *Status `json:"status"`
}

type Client struct {
	endpoint string
	host     string
	apiKey   string
	http     *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("sandbox client: empty url")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("sandbox client: parse url: %w", err)
	}
	q := u.Query()
	q.Set("base64_encoded", "false")
	q.Set("wait", "true")
	u.RawQuery = q.Encode()

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Host == "" {
		opts.Host = u.Host
	}

	return &Client{
		endpoint: u.String(),
		host:     opts.Host,
		apiKey:   opts.APIKey,
		http:     hc,
	}, nil
}

// Submit sends one submission and waits for the sandbox to finish it.
// Transport failures and non-2xx answers wrap errs.ErrSandboxUnreachable.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Verdict, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("sandbox: encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSandboxUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.host)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %w: %v", errs.ErrSandboxUnreachable, errs.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrSandboxUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s",
			errs.ErrSandboxUnreachable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: decode verdict: %v", errs.ErrSandboxUnreachable, err)
	}
	return &v, nil
}
