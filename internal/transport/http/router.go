package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	tlogger "github.com/cwrk-planet/codecollab/internal/transport/logger"
	"github.com/cwrk-planet/codecollab/pkg/httputil"
)

type Deps struct {
	Handlers       *Handlers
	WS             http.HandlerFunc
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(tlogger.WithRequestLoggerCtx)
	r.Use(httputil.MiddlewareLogging(tlogger.FromRequest))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// the websocket stays outside Timeout and Compress, it is long-lived and hijacked
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	h := d.Handlers
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Post("/auth/google", h.GoogleAuth)

		r.Route("/api", func(r chi.Router) {
			r.Post("/execute", h.Execute)
			r.Post("/evaluate", h.Evaluate)
			r.Get("/stats", h.Stats)
			r.Get("/rooms/{id}", h.GetRoom)
		})
	})

	return r
}
