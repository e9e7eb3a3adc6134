package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/codecollab/config"
	"github.com/cwrk-planet/codecollab/internal/auth"
	"github.com/cwrk-planet/codecollab/internal/registry"
	"github.com/cwrk-planet/codecollab/internal/sandbox"
	"github.com/cwrk-planet/codecollab/internal/service"
	grpcx "github.com/cwrk-planet/codecollab/internal/transport/grpc"
	httpx "github.com/cwrk-planet/codecollab/internal/transport/http"
	"github.com/cwrk-planet/codecollab/internal/transport/ws"
	"github.com/cwrk-planet/codecollab/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting codecollab",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- collaborators ---
	sb, err := sandbox.New(sandbox.Options{
		URL:     cfg.Sandbox.URL,
		Host:    cfg.Sandbox.Host,
		APIKey:  cfg.Sandbox.APIKey,
		Timeout: cfg.Sandbox.TimeoutOr() + 5*time.Second,
	})
	if err != nil {
		log.Fatalf("sandbox: %v", err)
	}
	if cfg.Sandbox.APIKey == "" {
		slog.Warn("sandbox api key not set, sending unauthenticated requests", "url", cfg.Sandbox.URL)
	}

	evaluator := service.NewEvaluator(service.EvaluatorOptions{
		URL:     cfg.Evaluator.URL,
		APIKey:  cfg.Evaluator.APIKey,
		Model:   cfg.Evaluator.Model,
		Timeout: cfg.Evaluator.TimeoutOr(),
	})
	if !evaluator.Enabled() {
		slog.Warn("evaluator api key not set, /api/evaluate will answer 503")
	}

	google := auth.NewGoogle(auth.GoogleOptions{
		ClientID: cfg.Auth.GoogleClientID,
		CertsURL: cfg.Auth.CertsURL,
	})

	// --- WS Hub & Server ---
	reg := registry.New(registry.WithIdleTTL(cfg.Rooms.IdleTTLOr()))
	hub := ws.NewHub(reg, cfg.Rooms.SweepIntervalOr())
	go hub.Run(ctx)

	wsServer := ws.NewServer(hub, ws.Options{
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
		Burst:             cfg.WS.Burst,
		MaxMessageBytes:   cfg.WS.MaxMessageBytes,
		SendBuffer:        cfg.WS.SendBuffer,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Handlers: &httpx.Handlers{
			Exec:  service.NewDispatcher(sb, cfg.Sandbox.TimeoutOr()),
			Eval:  evaluator,
			Auth:  google,
			Rooms: hub,
		},
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeoutOr(),
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeoutOr(),
		WriteTimeout: cfg.HTTP.WriteTimeoutOr(),
		IdleTimeout:  cfg.HTTP.IdleTimeoutOr(),
	}

	// --- run servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var grpcSrv *grpcx.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpcx.New(10 * time.Second)
		grpcSrv.TrackHub(ctx, hub.Done())
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if grpcSrv != nil {
		grpcSrv.SetServing(false)
	}
	// stopping the hub closes every websocket; Shutdown does not track hijacked conns
	cancel()
	<-hub.Done()

	_ = httpSrv.Shutdown(ctxShutdown)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	slog.Info("stopped")
}
