package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundwave/cache"
	"soundwave/config"
	"soundwave/core/auth"
	"soundwave/core/catalog"
	"soundwave/db"
	"soundwave/logger"
	"soundwave/repository"
	"soundwave/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutput,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	auth.Init(cfg.JWTSecret, cfg.TokenTTL)

	store, err := storage.NewStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	trackRepo := repository.NewMySQLTrackRepository()
	userRepo := repository.NewGormUserRepository()
	songCatalog := catalog.New(trackRepo, store, cfg.SignedURLTTL)

	apiHandler := NewAPIHandler(songCatalog, userRepo, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Song catalog endpoints.
	router.HandleFunc("/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs", apiHandler.CreateSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs/{id}", apiHandler.DeleteSongHandler).Methods(http.MethodDelete)
	router.HandleFunc("/songs/upload", apiHandler.AuthMiddleware(apiHandler.UploadSongHandler)).Methods(http.MethodPost)

	// Auth endpoints.
	router.HandleFunc("/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/confirm", apiHandler.ConfirmHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/session", apiHandler.AuthMiddleware(apiHandler.SessionHandler)).Methods(http.MethodGet)
	router.HandleFunc("/auth/logout", apiHandler.LogoutHandler).Methods(http.MethodPost)

	// Per-user convenience state.
	router.HandleFunc("/me/searches", apiHandler.AuthMiddleware(apiHandler.GetRecentSearchesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/me/searches", apiHandler.AuthMiddleware(apiHandler.AddRecentSearchHandler)).Methods(http.MethodPost)
	router.HandleFunc("/me/searches", apiHandler.AuthMiddleware(apiHandler.ClearRecentSearchesHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/me/avatar", apiHandler.AuthMiddleware(apiHandler.GetAvatarHandler)).Methods(http.MethodGet)
	router.HandleFunc("/me/avatar", apiHandler.AuthMiddleware(apiHandler.SetAvatarHandler)).Methods(http.MethodPut)

	// Playback session.
	router.HandleFunc("/ws/player", apiHandler.WebSocketPlayerHandler).Methods(http.MethodGet)

	// Preflight for any path; corsMiddleware answers before this runs.
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// corsMiddleware applies the wide-open CORS policy the web client expects
// and answers preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
