package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/internal/normalize"
	"github.com/cwrk-planet/codecollab/internal/sandbox"
	"github.com/cwrk-planet/codecollab/pkg/errs"
)

// Judge0 status ids above this one are abnormal completions.
const lastNormalStatus = 3

const defaultStatus = "Completed"

type Submitter interface {
	Submit(ctx context.Context, sub sandbox.Submission) (*sandbox.Verdict, error)
}

type Dispatcher struct {
	sandbox Submitter
	timeout time.Duration
}

// NewDispatcher builds a dispatcher; a timeout of 0 leaves the call bounded
// only by the caller's context.
func NewDispatcher(s Submitter, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sandbox: s, timeout: timeout}
}

// Execute validates the language, normalizes the source and runs it in the
// sandbox. Compile and runtime failures are results, not errors.
func (d *Dispatcher) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	langID, ok := domain.LanguageID(req.Language)
	if !ok {
		return domain.ExecutionResult{}, fmt.Errorf("%w: %q, want one of %v",
			errs.ErrUnsupportedLanguage, req.Language, domain.SupportedLanguages())
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := d.sandbox.Submit(ctx, sandbox.Submission{
		Source:     normalize.Normalize(req.Language, req.Code),
		Stdin:      req.Stdin,
		LanguageID: langID,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, errs.ErrTimeout) {
			err = fmt.Errorf("%w: %w", errs.ErrTimeout, err)
		}
		if !errors.Is(err, errs.ErrSandboxUnreachable) {
			err = fmt.Errorf("%w: %w", errs.ErrSandboxUnreachable, err)
		}
		slog.WarnContext(ctx, "sandbox call failed",
			"language", req.Language, "duration", time.Since(start), "err", err)
		return domain.ExecutionResult{}, err
	}

	res := classify(v)
	slog.DebugContext(ctx, "sandbox call done",
		"language", req.Language, "status", res.Status, "has_error", res.HasError,
		"duration", time.Since(start))
	return res, nil
}

// classify folds the three channels the sandbox reports failures through
// (compile output, stderr, abnormal status) into one error stream.
func classify(v *sandbox.Verdict) domain.ExecutionResult {
	errOut := v.CompileOutput
	if errOut == "" {
		errOut = v.Stderr
	}
	if errOut == "" && v.Status != nil && v.Status.ID > lastNormalStatus {
		errOut = v.Status.Description
	}

	status := defaultStatus
	if v.Status != nil && v.Status.Description != "" {
		status = v.Status.Description
	}

	return domain.ExecutionResult{
		Stdout:   v.Stdout,
		Stderr:   errOut,
		HasError: errOut != "",
		Status:   status,
	}
}
