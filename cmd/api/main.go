//	@title			Gallery API
//	@version		1.0
//	@description	Gallery posts with an uploaded image each. Stored images are served under /images.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/gallery/service/internal/config"
	"github.com/gallery/service/internal/db"
	"github.com/gallery/service/internal/gallery"
	"github.com/gallery/service/internal/image"
	"github.com/gallery/service/internal/logging"
	appMiddleware "github.com/gallery/service/internal/middleware"
	"github.com/gallery/service/internal/storage"

	_ "github.com/gallery/service/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())

	repo, tx, closeRepo := newRepository(cfg)
	defer closeRepo()

	backend := newStorage(cfg)

	// Wire dependencies: repository → service → handler
	imageStore := image.NewStore(backend)
	imageHandler := image.NewHandler(imageStore)

	gallerySvc := gallery.NewService(repo, tx)
	galleryHandler := gallery.NewHandler(gallerySvc, imageStore, cfg.MaxUploadBytes)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI, available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/images", imageHandler.Routes)
	r.Route("/api/galleries", galleryHandler.Routes)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// newRepository returns the configured gallery repository, its transactor
// and a function releasing its resources.
func newRepository(cfg *config.Config) (gallery.Repository, gallery.Transactor, func()) {
	if cfg.RepositoryDriver == config.RepositoryMemory {
		log.Warn().Msg("using in-memory gallery repository; records are lost on restart")
		repo := gallery.NewMemoryRepository()
		return repo, repo, func() {}
	}

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("database migration failed")
	}
	return gallery.NewPostgresRepository(pool), db.NewTransactor(pool), pool.Close
}

// newStorage returns the configured image storage backend.
func newStorage(cfg *config.Config) storage.Storage {
	if cfg.StorageDriver == config.StorageMinio {
		store, err := storage.NewMinioStorage(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageUseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("object storage init failed")
		}
		return store
	}

	local := storage.NewLocalStorage(afero.NewOsFs(), cfg.ImageDir)
	log.Info().Str("dir", local.Dir()).Msg("storing images on local disk")
	return local
}
