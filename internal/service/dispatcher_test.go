package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/internal/sandbox"
	"github.com/cwrk-planet/codecollab/pkg/errs"
)

type fakeSandbox struct {
	mu      sync.Mutex
	calls   []sandbox.Submission
	verdict *sandbox.Verdict
	err     error
	block   bool
}

func (f *fakeSandbox) Submit(ctx context.Context, sub sandbox.Submission) (*sandbox.Verdict, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sub)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func (f *fakeSandbox) submissions() []sandbox.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sandbox.Submission(nil), f.calls...)
}

func accepted(stdout string) *sandbox.Verdict {
	return &sandbox.Verdict{Stdout: stdout, Status: &sandbox.Status{ID: 3, Description: "Accepted"}}
}

func TestExecute_UnsupportedLanguageNeverContactsSandbox(t *testing.T) {
	sb := &fakeSandbox{verdict: accepted("")}
	d := NewDispatcher(sb, time.Second)

	_, err := d.Execute(context.Background(), domain.ExecutionRequest{Language: "unsupported-lang", Code: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedLanguage))
	assert.Empty(t, sb.submissions())
}

func TestExecute_JavaClassRenamedBeforeSubmit(t *testing.T) {
	sb := &fakeSandbox{verdict: accepted("1\n")}
	d := NewDispatcher(sb, time.Second)

	res, err := d.Execute(context.Background(), domain.ExecutionRequest{
		Language: domain.LangJava,
		Code:     "public class Solver { public static void main(String[] a){ System.out.println(1); } }",
	})
	require.NoError(t, err)

	subs := sb.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, 62, subs[0].LanguageID)
	assert.Equal(t, "public class Main { public static void main(String[] a){ System.out.println(1); } }", subs[0].Source)
	assert.NotContains(t, subs[0].Source, "Solver")
	assert.Equal(t, domain.ExecutionResult{Stdout: "1\n", Status: "Accepted"}, res)
}

func TestExecute_PythonPrintStatementAndStdin(t *testing.T) {
	sb := &fakeSandbox{verdict: accepted("hi\n")}
	d := NewDispatcher(sb, time.Second)

	_, err := d.Execute(context.Background(), domain.ExecutionRequest{Language: domain.LangPython, Code: "print 'hi'", Stdin: "42"})
	require.NoError(t, err)

	subs := sb.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "print('hi')", subs[0].Source)
	assert.Equal(t, "42", subs[0].Stdin)
	assert.Equal(t, 71, subs[0].LanguageID)
}

func TestExecute_Classification(t *testing.T) {
	tests := []struct {
		name    string
		verdict *sandbox.Verdict
		want    domain.ExecutionResult
	}{
		{
			name:    "clean run",
			verdict: accepted("ok"),
			want:    domain.ExecutionResult{Stdout: "ok", Status: "Accepted"},
		},
		{
			name: "compile output wins",
			verdict: &sandbox.Verdict{
				CompileOutput: "main.cpp:1: error", Stderr: "ignored",
				Status: &sandbox.Status{ID: 6, Description: "Compilation Error"},
			},
			want: domain.ExecutionResult{Stderr: "main.cpp:1: error", HasError: true, Status: "Compilation Error"},
		},
		{
			name: "stderr second",
			verdict: &sandbox.Verdict{
				Stdout: "partial", Stderr: "Traceback",
				Status: &sandbox.Status{ID: 11, Description: "Runtime Error (NZEC)"},
			},
			want: domain.ExecutionResult{Stdout: "partial", Stderr: "Traceback", HasError: true, Status: "Runtime Error (NZEC)"},
		},
		{
			name:    "abnormal status description last",
			verdict: &sandbox.Verdict{Status: &sandbox.Status{ID: 5, Description: "Time Limit Exceeded"}},
			want:    domain.ExecutionResult{Stderr: "Time Limit Exceeded", HasError: true, Status: "Time Limit Exceeded"},
		},
		{
			name:    "wrong answer status is not an error channel",
			verdict: &sandbox.Verdict{Stdout: "2", Status: &sandbox.Status{ID: 3, Description: "Accepted"}},
			want:    domain.ExecutionResult{Stdout: "2", Status: "Accepted"},
		},
		{
			name:    "missing status",
			verdict: &sandbox.Verdict{},
			want:    domain.ExecutionResult{Status: "Completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(&fakeSandbox{verdict: tt.verdict}, 0)
			res, err := d.Execute(context.Background(), domain.ExecutionRequest{Language: domain.LangCPP, Code: ""})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestExecute_SandboxFailureIsUnreachable(t *testing.T) {
	sb := &fakeSandbox{err: errors.New("connection refused")}
	d := NewDispatcher(sb, time.Second)

	_, err := d.Execute(context.Background(), domain.ExecutionRequest{Language: domain.LangJavaScript, Code: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSandboxUnreachable))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, sb.submissions(), 1, "no retry")
}

func TestExecute_DeadlineBoundsSlowSandbox(t *testing.T) {
	sb := &fakeSandbox{block: true}
	d := NewDispatcher(sb, 30*time.Millisecond)

	start := time.Now()
	_, err := d.Execute(context.Background(), domain.ExecutionRequest{Language: domain.LangPython, Code: "while True: pass"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTimeout))
	assert.True(t, errors.Is(err, errs.ErrSandboxUnreachable))
	assert.Less(t, time.Since(start), 2*time.Second)
}
