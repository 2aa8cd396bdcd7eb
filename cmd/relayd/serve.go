package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/realflats/relay/internal/archive"
	"github.com/realflats/relay/internal/config"
	"github.com/realflats/relay/internal/events"
	"github.com/realflats/relay/internal/httpapi"
	"github.com/realflats/relay/internal/idgen"
	"github.com/realflats/relay/internal/ingress"
	"github.com/realflats/relay/internal/outbox"
	"github.com/realflats/relay/internal/publish"
	"github.com/realflats/relay/internal/relay"
	"github.com/realflats/relay/internal/session"
	"github.com/realflats/relay/internal/store/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay daemon",
	// Override PersistentPreRunE so we don't create an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st := memory.New()

		// Delivery capability: the Postgres outbox when a database is
		// configured, otherwise log-only (development).
		var deliverer relay.Deliverer
		var ob *outbox.Outbox
		if cfg.DatabaseURL != "" {
			ob, err = outbox.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			deliverer = ob
			logger.Info("outbox deliverer enabled")
		} else {
			deliverer = &relay.LogDeliverer{Logger: logger}
			logger.Info("log deliverer enabled (RELAY_DATABASE_URL not set)")
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (RELAY_NATS_URL not set)")
		}

		sessions := session.NewTable(cfg.SessionTTL)
		engine := relay.NewEngine(
			st,
			sessions,
			deliverer,
			publisher,
			publish.LinkBuilder{BotUsername: cfg.BotUsername},
			idgen.NewSequence(cfg.RequestSeed),
			relay.Config{
				BoardSurface:     cfg.BoardChatID,
				LivenessAge:      cfg.LivenessAge,
				LivenessInterval: cfg.LivenessInterval,
				BroadcastOffers:  cfg.BroadcastOffers,
				Allowlist:        cfg.Allowlist,
			},
			logger,
		)

		maintenance := relay.NewScheduler(engine, cfg.MaintenanceInterval, logger)
		maintenance.Start()
		logger.Info("maintenance scheduler started", "interval", cfg.MaintenanceInterval)

		ingressHandler := ingress.NewHandler(engine, deliverer, logger)

		httpServer := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Engine:  engine,
				Ingress: ingressHandler,
				Logger:  logger,
			}),
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Inbound events from the bus, when available.
		var ingressCancel context.CancelFunc
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create ingress subscriber", "err", err)
			} else {
				var ingressCtx context.Context
				ingressCtx, ingressCancel = context.WithCancel(context.Background())
				go func() {
					if err := ingressHandler.StartSubscriber(ingressCtx, sub); err != nil {
						logger.Error("ingress subscriber error", "err", err)
					}
					sub.Close()
				}()
			}
		}

		var archiver *archive.Scheduler
		if cfg.ArchiveInterval > 0 && cfg.ArchiveS3Bucket != "" {
			dest, err := archive.NewS3Destination(
				context.Background(),
				cfg.ArchiveS3Bucket,
				cfg.ArchiveS3Key,
				cfg.ArchiveS3Region,
				cfg.ArchiveS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 archive destination", "err", err)
			} else {
				archiver = archive.NewScheduler(st, []archive.Destination{dest}, cfg.ArchiveInterval, logger)
				archiver.Start()
				logger.Info("archive scheduler started", "interval", cfg.ArchiveInterval, "bucket", cfg.ArchiveS3Bucket)
			}
		}

		logger.Info("relayd started",
			"http_addr", cfg.HTTPAddr,
			"board", cfg.BoardChatID,
			"bot", cfg.BotUsername,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if archiver != nil {
			archiver.Stop()
			logger.Info("archive scheduler stopped")
		}
		if ingressCancel != nil {
			ingressCancel()
			logger.Info("ingress subscriber stopped")
		}
		maintenance.Stop()
		logger.Info("maintenance scheduler stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "err", err)
		}

		publisher.Close()
		if ob != nil {
			ob.Close()
		}
		if err := st.Close(); err != nil {
			logger.Error("store close error", "err", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}
