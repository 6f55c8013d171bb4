package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labcas-project/labcas-gateway/internal/app"
	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
	"github.com/labcas-project/labcas-gateway/internal/directory"
	"github.com/labcas-project/labcas-gateway/internal/download"
	"github.com/labcas-project/labcas-gateway/internal/events"
	"github.com/labcas-project/labcas-gateway/internal/listing"
	"github.com/labcas-project/labcas-gateway/internal/observability"
	"github.com/labcas-project/labcas-gateway/internal/platform/cache"
	"github.com/labcas-project/labcas-gateway/internal/platform/objectstore"
	"github.com/labcas-project/labcas-gateway/internal/query"
	"github.com/labcas-project/labcas-gateway/internal/session"
)

// disabledPresigner stands in when no object storage is configured so
// an s3-located file yields a clean upstream error instead of a panic.
type disabledPresigner struct{}

func (disabledPresigner) PresignGet(context.Context, string, string, time.Duration) (string, error) {
	return "", fmt.Errorf("object storage is not configured")
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if cfg.AcceptAnyToken {
		logger.Warn("ACCEPT_ANY_TOKEN is enabled; token signatures will NOT be verified")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect session cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var dir directory.Provider
	switch cfg.DirectoryProvider {
	case "ldap":
		ldapProvider, err := directory.NewLDAPProvider(directory.LDAPConfig{
			URI:       cfg.LDAPURI,
			BindDN:    cfg.LDAPBindDN,
			Password:  cfg.LDAPPassword,
			UserBase:  cfg.LDAPUserBase,
			GroupBase: cfg.LDAPGroupBase,
		}, logger)
		if err != nil {
			logger.Error("configure ldap directory", slog.Any("error", err))
			os.Exit(1)
		}
		dir = ldapProvider
	default:
		dir = directory.NewMockProvider()
	}

	sessions := session.NewManager(session.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		TTL:       cfg.SessionTTL,
		AcceptAny: cfg.AcceptAnyToken,
	}, redisClient, logger)

	resolver := auth.NewResolver(dir, sessions, logger)

	dispatcher := events.NewDispatcher(logger)
	dispatcher.Subscribe(events.AuthIssued, events.AuditListener(logger))
	dispatcher.Subscribe(events.AuthRevoked, events.AuditListener(logger))
	dispatcher.Subscribe(events.DownloadResolved, events.AuditListener(logger))

	engine := catalog.NewSolrEngine(cfg.SolrURL, cfg.SolrTimeout, logger)
	filter := catalog.AccessFilter{
		SuperOwner:  cfg.SuperOwnerPrincipal,
		PublicOwner: cfg.PublicOwnerPrincipal,
	}

	queryService := query.NewService(engine, filter, cfg.SolrMaxRows, logger)
	listingService := listing.NewService(engine, filter, cfg.SolrMaxRows, cfg.DownloadBaseURL, logger)

	var presigner objectstore.Presigner = disabledPresigner{}
	if cfg.S3Endpoint != "" {
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Error("configure object storage", slog.Any("error", err))
			os.Exit(1)
		}
		presigner = store
	}

	downloadService := download.NewService(download.Config{
		Bucket:             cfg.S3Bucket,
		PresignExpiry:      cfg.S3PresignExpiry,
		PathPrefixRewrites: cfg.FilePathPrefixReplacements,
	}, queryService, presigner, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     auth.NewHandler(logger, dir, sessions, resolver, dispatcher),
		QueryHandler:    query.NewHandler(logger, queryService, resolver),
		ListingHandler:  listing.NewHandler(logger, listingService, resolver),
		DownloadHandler: download.NewHandler(logger, downloadService, resolver, dispatcher),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("solr", cfg.SolrURL),
			slog.String("directory", cfg.DirectoryProvider))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
