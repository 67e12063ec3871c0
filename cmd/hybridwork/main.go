package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/config"
	httptransport "github.com/example/hybrid-work/internal/http"
	"github.com/example/hybrid-work/internal/persistence/sqlite"
	"github.com/example/hybrid-work/internal/persistence/sqlite/migration"
	"github.com/example/hybrid-work/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx, logger); err != nil {
		return err
	}

	app, err := newApp(cfg, store, logger, time.Now)
	if err != nil {
		return err
	}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		app.hub.Run(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		app.hub.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("hybrid-work API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-hubDone
	return nil
}

type app struct {
	handler http.Handler
	hub     *realtime.Hub
	auth    *application.AuthService
}

// newApp wires services and transport over store. The hub is returned
// unstarted.
func newApp(cfg config.Config, store *sqlite.Store, logger *slog.Logger, now func() time.Time) (*app, error) {
	idGenerator := uuid.NewString

	tokens, err := application.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, now)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	hub := realtime.NewHub(realtime.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Now:            now,
	})

	notifications := application.NewNotificationServiceWithLogger(store.Notifications, hub, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(application.AuthServiceDeps{
		Users:       store.Users,
		Sessions:    store.Sessions,
		Tokens:      tokens,
		IDGenerator: idGenerator,
		Now:         now,
		RefreshTTL:  cfg.RefreshTokenTTL,
	}, logger)
	userService := application.NewUserServiceWithLogger(store.Users, nil, idGenerator, now, logger)
	calendarService := application.NewCalendarServiceWithLogger(application.CalendarServiceDeps{
		Calendar:        store.Calendar,
		Requests:        store.Requests,
		Threads:         store.Threads,
		Users:           store.Users,
		Transactor:      store,
		Notifier:        notifications,
		Publisher:       hub,
		IDGenerator:     idGenerator,
		Now:             now,
		RequestDuration: cfg.RequestDefaultDuration,
	}, logger)
	deskService := application.NewDeskServiceWithLogger(application.DeskServiceDeps{
		Desks:         store.Desks,
		Presence:      store.Presence,
		Transactor:    store,
		Publisher:     hub,
		IDGenerator:   idGenerator,
		Now:           now,
		DefaultWindow: cfg.ReservationDefaultWindow,
	}, logger)
	messagingService := application.NewMessagingServiceWithLogger(application.MessagingServiceDeps{
		Threads:     store.Threads,
		Users:       store.Users,
		Transactor:  store,
		Publisher:   hub,
		IDGenerator: idGenerator,
		Now:         now,
	}, logger)
	presenceService := application.NewPresenceServiceWithLogger(store.Presence, store.Desks, hub, now, logger)

	metrics := httptransport.NewMetrics()
	if err := registerAll(metrics, hub); err != nil {
		return nil, err
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Calendar:      httptransport.NewCalendarHandler(calendarService, logger, now),
		Desks:         httptransport.NewDeskHandler(deskService, logger),
		Threads:       httptransport.NewThreadHandler(messagingService, logger),
		Presence:      httptransport.NewPresenceHandler(presenceService, logger),
		Notifications: httptransport.NewNotificationHandler(notifications, logger),
		Realtime:      hub,
		Tokens:        authService,
		Metrics:       metrics,
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &app{handler: handler, hub: hub, auth: authService}, nil
}

func registerAll(metrics *httptransport.Metrics, hub *realtime.Hub) error {
	for _, collector := range hub.Collectors() {
		if err := metrics.Registry().Register(collector); err != nil {
			return fmt.Errorf("register realtime metrics: %w", err)
		}
	}
	return nil
}
