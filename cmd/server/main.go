// Command server runs the trip sync backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busdriver/internal/config"
	"busdriver/internal/database"
	"busdriver/internal/handlers"
	"busdriver/internal/logging"
	"busdriver/internal/middleware"
	"busdriver/internal/models"
	"busdriver/internal/services"
	"busdriver/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	shutdownTimeout     = 15 * time.Second
	limiterCleanupEvery = 10 * time.Minute
)

func main() {
	cfg := config.LoadServer()

	log, err := logging.New("server", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("❌ FATAL ERROR", "error", err)
	}
}

func run(cfg *config.ServerConfig, log *zap.SugaredLogger) error {
	log.Info("🚀 Trip sync backend starting")

	if cfg.JWTSecret == "" {
		return errors.New("APP_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("🔄 Running database migrations...")
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	log.Info("🌱 Seeding database with initial data...")
	if err := database.SeedAccounts(db, cfg.SeedDriverPIN, cfg.SeedDispatcherPIN, log); err != nil {
		return err
	}
	if err := database.SeedRoutes(db, models.NowMillis(), log); err != nil {
		return err
	}

	store := database.NewStore(db)

	// Push notifications are optional
	var notifier handlers.Notifier
	if fcm := newFCM(ctx, cfg, log); fcm != nil {
		notifier = fcm
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	log.Info("✅ WebSocket hub started")

	limiter := middleware.NewRateLimiter(cfg.UploadsPerMinute, cfg.UploadsPerMinute)
	go cleanupLimiters(ctx, limiter, log)

	r := newRouter(cfg, db, store, hub, notifier, limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🚀 Server listening on :%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("✅ Server stopped")
	return nil
}

func newRouter(
	cfg *config.ServerConfig,
	db handlers.Pinger,
	store handlers.Store,
	hub *websocket.Hub,
	notifier handlers.Notifier,
	limiter *middleware.RateLimiter,
	log *zap.SugaredLogger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health(db, hub))

	// Authentication is handled in the handler via the token query param
	r.Get("/ws", websocket.HandleWebSocket(hub, cfg.JWTSecret, log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", handlers.Login(store, cfg.JWTSecret, log))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, log))

			r.Get("/catalog/drivers/{id}", handlers.GetDriver(store, log))
			r.Get("/catalog/routes", handlers.GetRoutes(store, log))

			r.With(limiter.PerDriver).Post("/trips", handlers.UploadTrip(store, hub, notifier, log))

			r.Post("/driver/fcm-token", handlers.RegisterFCMToken(store, log))
			r.Post("/logs/diagnostic", handlers.ReceiveDiagnosticLog(log))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleDispatcher))
				r.Get("/dispatch/uploads", handlers.RecentUploads(store, log))
			})
		})
	})

	return r
}

// newFCM initializes push notifications from base64 credentials or a file.
// It returns nil when neither is configured or initialization fails.
func newFCM(ctx context.Context, cfg *config.ServerConfig, log *zap.SugaredLogger) *services.FCMService {
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		fcm, err := services.NewFCMServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64, log)
		if err != nil {
			log.Warnf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Info("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return fcm

	case cfg.FirebaseCredentialsFile != "":
		fcm, err := services.NewFCMService(ctx, cfg.FirebaseCredentialsFile, log)
		if err != nil {
			log.Warnf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			return nil
		}
		log.Info("✅ Firebase Cloud Messaging initialized from file")
		return fcm
	}

	log.Info("ℹ️  No Firebase credentials configured, push notifications disabled")
	return nil
}

func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter, log *zap.SugaredLogger) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(time.Hour); n > 0 {
				log.Debugf("🧹 Removed %d idle rate limiters", n)
			}
		}
	}
}
