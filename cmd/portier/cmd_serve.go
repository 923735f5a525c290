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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/francescomari/portier/pkg/auth"
	"github.com/francescomari/portier/pkg/auth/apikey"
	"github.com/francescomari/portier/pkg/auth/bearer"
	"github.com/francescomari/portier/pkg/auth/form"
	"github.com/francescomari/portier/pkg/config"
	"github.com/francescomari/portier/pkg/debug"
	"github.com/francescomari/portier/pkg/directory"
	pgdir "github.com/francescomari/portier/pkg/directory/postgres"
	"github.com/francescomari/portier/pkg/directory/static"
	"github.com/francescomari/portier/pkg/observability"
	"github.com/francescomari/portier/pkg/session"
	"github.com/francescomari/portier/pkg/session/memory"
	sessredis "github.com/francescomari/portier/pkg/session/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authenticating proxy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger := newLogger(cfg.Observability.Logging)
	slog.SetDefault(logger)

	debug.Init(cfg.Observability.Logging.Debug)
	if cats := debug.Categories(); len(cats) > 0 {
		logger.Info("debug categories enabled", "categories", cats)
	}

	var (
		closers []func() error
		checks  []func(context.Context) error
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	lookup, err := buildDirectory(cfg, &closers, &checks)
	if err != nil {
		return err
	}

	store, err := buildSessions(cfg, &closers, &checks)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, store, lookup, logger)
	if err != nil {
		return err
	}

	proxy, err := newProxy(cfg.Upstream)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      buildRouter(cfg, engine, proxy, logger, checks),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("proxy starting", "port", cfg.Server.Port, "upstream", cfg.Upstream.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: debug.ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// buildDirectory creates the configured user directory. Backends with
// connections register their health check and closer.
func buildDirectory(cfg *config.Config, closers *[]func() error, checks *[]func(context.Context) error) (directory.Lookup, error) {
	switch cfg.Directory.Type {
	case "postgres":
		dir, err := pgdir.New(context.Background(), pgdir.Config{
			DSN:            cfg.Directory.Postgres.DSN,
			MaxConns:       cfg.Directory.Postgres.MaxConns,
			MinConns:       cfg.Directory.Postgres.MinConns,
			MigrateOnStart: cfg.Directory.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres directory: %w", err)
		}
		*closers = append(*closers, dir.Close)
		*checks = append(*checks, dir.HealthCheck)
		slog.Info("directory enabled", "type", "postgres")
		return dir, nil

	default:
		users := make([]directory.User, 0, len(cfg.Directory.Users))
		for _, u := range cfg.Directory.Users {
			users = append(users, directory.User{
				Name:          u.Name,
				PasswordHash:  u.PasswordHash,
				Disabled:      u.Disabled,
				Impersonators: u.Impersonators,
				Attributes:    u.Attributes,
			})
		}
		dir, err := static.New(users)
		if err != nil {
			return nil, fmt.Errorf("creating static directory: %w", err)
		}
		slog.Info("directory enabled", "type", "static", "users", dir.Len())
		return dir, nil
	}
}

// buildSessions creates the configured session store.
func buildSessions(cfg *config.Config, closers *[]func() error, checks *[]func(context.Context) error) (session.Store, error) {
	switch cfg.Sessions.Type {
	case "redis":
		store := sessredis.New(sessredis.Config{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
			Prefix:   cfg.Sessions.Redis.Prefix,
		})
		*closers = append(*closers, store.Close)
		*checks = append(*checks, store.Ping)
		slog.Info("sessions enabled", "type", "redis", "addr", cfg.Sessions.Redis.Addr)
		return store, nil

	default:
		slog.Info("sessions enabled", "type", "memory")
		return memory.New(), nil
	}
}

// buildEngine wires the configured handlers into a registry and
// creates the authentication engine.
func buildEngine(cfg *config.Config, store session.Store, lookup directory.Lookup, logger *slog.Logger) (*auth.Engine, error) {
	registry := auth.NewRegistry()

	if cfg.Auth.Form.Enabled {
		handler, err := form.New(form.Config{
			LoginPath:  cfg.Auth.Form.LoginPath,
			CookieName: cfg.Auth.Form.CookieName,
			TTL:        cfg.Auth.Form.TTL,
			Secure:     cfg.Auth.Form.Secure,
		}, store)
		if err != nil {
			return nil, fmt.Errorf("creating form handler: %w", err)
		}
		// The login action must reach the form handler even when its
		// configured paths do not cover the login path.
		rules := append(pathRules(cfg.Auth.Form.Paths), auth.PathRule{Prefix: cfg.Auth.Form.LoginPath})
		registry.Register("form", handler, rules...)
	}

	if cfg.Auth.Bearer.Enabled {
		handler, err := bearer.New(bearer.Config{
			Secret:      cfg.Auth.Bearer.Secret,
			JWKSURL:     cfg.Auth.Bearer.JWKSURL,
			Issuer:      cfg.Auth.Bearer.Issuer,
			Audience:    cfg.Auth.Bearer.Audience,
			UserClaim:   cfg.Auth.Bearer.UserClaim,
			ScopesClaim: cfg.Auth.Bearer.ScopesClaim,
			Realm:       cfg.Auth.Realm,
		})
		if err != nil {
			return nil, fmt.Errorf("creating bearer handler: %w", err)
		}
		registry.Register("bearer", handler, pathRules(cfg.Auth.Bearer.Paths)...)
	}

	if len(cfg.Auth.APIKeys.Keys) > 0 {
		keys := make([]apikey.Key, 0, len(cfg.Auth.APIKeys.Keys))
		for _, k := range cfg.Auth.APIKeys.Keys {
			keys = append(keys, apikey.Key{Key: k.Key, User: k.User})
		}
		registry.Register("apikey", apikey.New(keys), pathRules(cfg.Auth.APIKeys.Paths)...)
	}

	if cfg.Auth.MaxLoginAttempts > 0 {
		registry.RegisterPostProcessor("login-limiter", auth.NewLoginLimiter(cfg.Auth.MaxLoginAttempts, time.Minute))
	}

	return auth.New(auth.Config{
		Realm:          cfg.Auth.Realm,
		BasicFallback:  cfg.Auth.BasicFallback,
		AnonymousUser:  cfg.Auth.AnonymousUser,
		SudoCookie:     cfg.Auth.Sudo.Cookie,
		SudoParameter:  cfg.Auth.Sudo.Parameter,
		SudoDisabled:   cfg.Auth.Sudo.Disabled,
		ResolveTimeout: cfg.Auth.ResolveTimeout,
	}, registry, directory.NewResolver(lookup), logger)
}

// pathRules converts configured path prefixes into registry rules.
func pathRules(paths []string) []auth.PathRule {
	rules := make([]auth.PathRule, 0, len(paths))
	for _, p := range paths {
		rules = append(rules, auth.PathRule{Prefix: p})
	}
	return rules
}

// buildRouter assembles the HTTP surface: operational endpoints, the
// login flow, and the authenticated proxy catch-all.
func buildRouter(cfg *config.Config, engine *auth.Engine, proxy http.Handler, logger *slog.Logger, checks []func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.LoggingMiddleware(logger))
	r.Use(observability.MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				slog.Warn("readiness check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	if cfg.Observability.Metrics.Enabled {
		r.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	if cfg.Auth.Form.Enabled {
		r.Get(cfg.Auth.Form.LoginPath, loginPageHandler())
		r.Post(cfg.Auth.Form.LoginPath, loginActionHandler(engine))
	}
	r.HandleFunc("/logout", engine.Logout)

	r.Handle("/*", engine.Middleware(proxy))

	return r
}
