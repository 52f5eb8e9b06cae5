package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/app"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	tracing := flag.Bool("otel", false, "wrap the handler with OpenTelemetry instrumentation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.Server.Mode)
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("assemble app", zap.Error(err))
	}
	defer a.Close()

	var handler http.Handler = a.Server.Handler()
	if *tracing {
		handler = otelhttp.NewHandler(handler, "formflow")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
