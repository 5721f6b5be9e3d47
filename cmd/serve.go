package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tenant-scraper/internal/api"
	"tenant-scraper/internal/auth"
	"tenant-scraper/internal/consumer"
	"tenant-scraper/internal/messaging"
)

const queueDepthInterval = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic scraper, the trigger consumer and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := a.logger

	var trigger api.TriggerPublisher
	if a.cfg.RabbitMQ.URL != "" {
		rabbitClient, err := messaging.NewRabbitClient(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.TriggerQueue, logger.Named("rabbit"))
		if err != nil {
			return err
		}
		defer rabbitClient.Close()
		if err := rabbitClient.DeclareQueues(); err != nil {
			return err
		}
		logger.Info("RabbitMQ connected")

		c, err := consumer.StartConsumer(rabbitClient.GetConnection(), rabbitClient.QueueName(), a.cycles.HandleTrigger, logger.Named("consumer"))
		if err != nil {
			return err
		}
		defer c.Stop()
		trigger = rabbitClient

		// Start background loop for updating queue depth metrics
		go func() {
			ticker := time.NewTicker(queueDepthInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rabbitClient.UpdateQueueDepth()
				}
			}
		}()
	} else {
		logger.Warn("rabbitmq.url not set, on-demand scrape triggers disabled")
	}

	handler, err := api.NewAPI(a.store, trigger, auth.NewIssuer(a.cfg.Auth.JWTSecret, auth.DefaultTokenTTL), logger.Named("api"))
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cyclesDone := make(chan struct{})
	go func() {
		defer close(cyclesDone)
		a.cycles.Start(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown initiated")
	case err = <-errCh:
		logger.Error("Server error", zap.Error(err))
	}

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Error("HTTP shutdown error", zap.Error(serr))
	}

	<-cyclesDone
	logger.Info("Graceful shutdown complete")
	return err
}
