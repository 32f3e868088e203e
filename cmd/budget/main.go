package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/amqp"
	"github.com/morkdaniel/budget-tracker/internal/backend"
	"github.com/morkdaniel/budget-tracker/internal/cli"
	apphttp "github.com/morkdaniel/budget-tracker/internal/http"
	"github.com/morkdaniel/budget-tracker/internal/tracker"
	"github.com/morkdaniel/budget-tracker/internal/view"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg)
	defer store.Close()
	logger.Info("Document store initialized", "backend", cfg.DataBackend)

	// AMQP change bus is optional; without it mutations stay local-only.
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		logger.Info("AMQP change bus initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	// The facade's notices land on the tracker's event stream, which the
	// browser watches over SSE. The tracker is built right after, so route
	// through a pointer captured by the closure.
	var tr *tracker.Tracker
	opts := []backend.Option{
		backend.WithRetryDelay(cfg.AuthRetryDelay),
		backend.WithNotify(func(kind, text string) {
			if tr != nil {
				tr.Notify(kind, text)
			}
		}),
	}
	if bus != nil {
		opts = append(opts, backend.WithChangePublisher(bus))
	}
	client := backend.New(store, store, opts...)
	defer client.Close()

	tr = tracker.New(client, tracker.WithGate(cfg.ReadyPollInterval, cfg.ReadyMaxAttempts))
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.Authenticate(ctx)
	go func() {
		if err := tr.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Tracker stopped", "error", err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, tr, view.Formatter{Symbol: cfg.CurrencySymbol})

	// Configure server timeouts and limits. No WriteTimeout: the SSE stream
	// stays open indefinitely.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting budget server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
