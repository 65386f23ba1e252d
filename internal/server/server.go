// Package server wires storage, sessions, image uploads and HTTP handlers
// into a runnable listing server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/camazac/realty/internal/server/auth"
	"github.com/camazac/realty/internal/server/config"
	"github.com/camazac/realty/internal/server/handlers"
	"github.com/camazac/realty/internal/server/middleware"
	"github.com/camazac/realty/internal/server/properties"
	"github.com/camazac/realty/internal/server/session"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/internal/server/storage/sqlite"
	"github.com/camazac/realty/internal/server/uploads"
)

// Server is the assembled HTTP application.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *sqlite.Storage
	credentials *auth.Credentials
	sessions    *session.Manager
	handler     http.Handler
	closers     []io.Closer
}

// New opens every backend selected by cfg and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		closers: []io.Closer{db},
	}

	if err := s.init(ctx, version); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Server) init(ctx context.Context, version string) error {
	credentials, err := auth.NewCredentials(s.logger, s.db, s.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	s.credentials = credentials

	sessionStore, err := s.openSessionStore(ctx)
	if err != nil {
		return err
	}
	s.sessions = session.NewManager(s.logger, sessionStore, session.Options{
		CookieName: s.cfg.Sessions.CookieName,
		TTL:        s.cfg.Sessions.TTL,
		Secure:     s.cfg.IsProduction(),
	})

	imageStore, err := s.openImageStore(ctx)
	if err != nil {
		return err
	}
	pipeline := uploads.NewPipeline(s.logger, imageStore, s.cfg.Images.MaxFileSize)
	service := properties.NewService(s.logger, s.db, pipeline)

	s.handler = s.routes(
		handlers.NewAuthHandler(s.logger, s.credentials, s.sessions),
		handlers.NewPropertyHandler(s.logger, service, pipeline),
		handlers.NewMessageHandler(s.logger, s.db),
		handlers.NewUploadHandler(s.logger, pipeline),
		handlers.NewHealthHandler(s.logger, s.db, version),
	)

	return nil
}

// openSessionStore создает хранилище сессий по sessions.type
func (s *Server) openSessionStore(ctx context.Context) (storage.SessionStorage, error) {
	cfg := s.cfg.Sessions

	switch cfg.Type {
	case "sqlite":
		return s.db, nil
	case "memory":
		store := session.NewMemoryStore(cfg.SweepInterval)
		s.closers = append(s.closers, store)
		return store, nil
	case "bolt":
		store, err := session.OpenBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		return store, nil
	case "redis":
		client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		store := session.NewRedisStore(client, cfg.RedisPrefix)
		s.closers = append(s.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
}

// openImageStore создает хранилище изображений по images.type
func (s *Server) openImageStore(ctx context.Context) (uploads.Store, error) {
	cfg := s.cfg.Images

	switch cfg.Type {
	case "filesystem":
		return uploads.NewFileSystemStore(cfg.Dir)
	case "s3":
		return uploads.NewS3Store(ctx, uploads.S3Options{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown image store type: %s", cfg.Type)
	}
}

func (s *Server) routes(
	authHandler *handlers.AuthHandler,
	propertyHandler *handlers.PropertyHandler,
	messageHandler *handlers.MessageHandler,
	uploadHandler *handlers.UploadHandler,
	healthHandler *handlers.HealthHandler,
) http.Handler {
	authenticated := middleware.RequireAuthenticated(s.logger)
	admin := middleware.RequireAdmin(s.logger, s.credentials)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", healthHandler.Health)

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/properties", propertyHandler.List)
	mux.HandleFunc("GET /api/properties/{id}", propertyHandler.Get)
	mux.Handle("POST /api/properties", admin(http.HandlerFunc(propertyHandler.Create)))
	mux.Handle("PATCH /api/properties/{id}", admin(http.HandlerFunc(propertyHandler.Update)))
	mux.Handle("DELETE /api/properties/{id}", admin(http.HandlerFunc(propertyHandler.Delete)))

	mux.Handle("GET /api/messages", admin(http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/messages", authenticated(http.HandlerFunc(messageHandler.Create)))

	mux.HandleFunc("GET /uploads/{filename}", uploadHandler.Serve)

	// Цепочка: recovery -> logging -> authenticate -> mux
	var h http.Handler = mux
	h = middleware.Authenticate(s.logger, s.sessions)(h)
	h = middleware.Logging(s.logger, "/api/health")(h)
	h = middleware.Recovery(s.logger)(h)

	return h
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Credentials returns the credential store.
func (s *Server) Credentials() *auth.Credentials {
	return s.credentials
}

// Run sweeps expired sessions and serves HTTP until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if deleted, err := s.sessions.Sweep(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to sweep expired sessions", slog.Any("error", err))
	} else if deleted > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", slog.Int("count", deleted))
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "server listening",
			slog.String("addr", s.cfg.Server.Addr),
			slog.String("environment", s.cfg.Server.Environment))
		errC <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// Close releases every opened backend in reverse order.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
