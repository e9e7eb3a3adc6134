package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/codecollab/internal/auth"
	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/internal/service"
	tlogger "github.com/cwrk-planet/codecollab/internal/transport/logger"
	"github.com/cwrk-planet/codecollab/internal/transport/ws"
	"github.com/cwrk-planet/codecollab/pkg/errs"
	"github.com/cwrk-planet/codecollab/pkg/httputil"
)

type Executor interface {
	Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (json.RawMessage, error)
}

type RoomInspector interface {
	Snapshot(ctx context.Context, roomID string) (domain.RoomSnapshot, bool, error)
	Stats(ctx context.Context) (ws.Stats, error)
}

type Handlers struct {
	Exec  Executor
	Eval  Evaluator
	Auth  auth.Authenticator
	Rooms RoomInspector
}

// Execute runs code in the sandbox. Compile and runtime failures come back
// as 200 with hasError set; only dispatch failures use error statuses.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var in executeRequest
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.JSON(w, http.StatusBadRequest, executeResponse{Stderr: "invalid JSON", HasError: true})
		return
	}

	res, err := h.Exec.Execute(r.Context(), domain.ExecutionRequest{
		Language: domain.Language(in.Language),
		Code:     in.Code,
		Stdin:    in.Stdin,
	})
	if err != nil {
		status := errs.ToHTTP(err)
		msg := err.Error()
		if errors.Is(err, errs.ErrUnsupportedLanguage) {
			msg = "Unsupported language"
		} else {
			tlogger.L(r.Context()).Warn("execute failed", "language", in.Language, "err", err)
		}
		httputil.JSON(w, status, executeResponse{Stderr: msg, HasError: true})
		return
	}

	httputil.JSON(w, http.StatusOK, executeResponse{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		HasError: res.HasError,
		Status:   res.Status,
	})
}

// Evaluate passes the evaluator's JSON verdict through untouched.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var in evaluateRequest
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.JSON(w, http.StatusBadRequest, evaluateError{Error: "invalid JSON"})
		return
	}

	out, err := h.Eval.Evaluate(r.Context(), domain.EvaluationRequest{
		Language: domain.Language(in.Language),
		Code:     in.Code,
		Problem:  in.Problem,
	})
	if err != nil {
		var malformed *service.MalformedError
		switch {
		case errors.As(err, &malformed):
			httputil.JSON(w, errs.ToHTTP(err), evaluateError{Error: "AI returned invalid JSON", Raw: malformed.Raw})
		case errors.Is(err, errs.ErrInvalidInput):
			httputil.JSON(w, http.StatusBadRequest, evaluateError{Error: err.Error()})
		case errors.Is(err, errs.ErrUnavailable):
			httputil.JSON(w, http.StatusServiceUnavailable, evaluateError{Error: "AI evaluation is not configured."})
		default:
			tlogger.L(r.Context()).Error("evaluate failed", "err", err)
			httputil.JSON(w, errs.ToHTTP(err), evaluateError{Error: "AI evaluation failed."})
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handlers) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var in googleAuthRequest
	if err := httputil.DecodeJSON(r, &in); err != nil || strings.TrimSpace(in.Token) == "" {
		httputil.JSON(w, http.StatusBadRequest, googleAuthResponse{Msg: "Invalid token"})
		return
	}

	user, err := h.Auth.Authenticate(r.Context(), strings.TrimSpace(in.Token))
	if err != nil {
		if errors.Is(err, errs.ErrUnavailable) {
			tlogger.L(r.Context()).Error("google sign-in not configured", "err", err)
			httputil.JSON(w, http.StatusServiceUnavailable, googleAuthResponse{Msg: "Sign-in unavailable"})
			return
		}
		tlogger.L(r.Context()).Info("google sign-in rejected", "err", err)
		httputil.JSON(w, http.StatusBadRequest, googleAuthResponse{Msg: "Invalid token"})
		return
	}

	httputil.JSON(w, http.StatusOK, googleAuthResponse{Success: true, User: user})
}

// GetRoom reports a room's current state. Unset code and language are
// reported with the editor defaults.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok, err := h.Rooms.Snapshot(r.Context(), id)
	if err != nil {
		httputil.Error(w, errs.ToHTTP(err), "room lookup failed", map[string]any{"reason": err.Error()})
		return
	}
	if !ok {
		httputil.Error(w, http.StatusNotFound, "room not found", map[string]any{"id": id})
		return
	}

	out := roomResponse{
		ID:       snap.ID,
		Users:    snap.Participants,
		Language: snap.Language,
		Code:     snap.Code,
		HasCode:  snap.HasCode,
	}
	if !snap.HasLanguage {
		out.Language = string(domain.DefaultLanguage)
	}
	if !snap.HasCode {
		out.Code = domain.DefaultCode
	}
	httputil.JSON(w, http.StatusOK, out)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Rooms.Stats(r.Context())
	if err != nil {
		httputil.Error(w, errs.ToHTTP(err), "stats unavailable", map[string]any{"reason": err.Error()})
		return
	}
	httputil.JSON(w, http.StatusOK, statsResponse{
		Rooms:        st.Rooms,
		Participants: st.Participants,
		Connections:  st.Connections,
		Evicted:      st.Evicted,
	})
}
