package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harvest-gateway/cmd"
	"harvest-gateway/internal/api"
	"harvest-gateway/internal/auth"
	"harvest-gateway/internal/mlclient"
	"harvest-gateway/internal/oauth"
	"harvest-gateway/internal/store"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

type GatewayConfig struct {
	Port         string `env:"PORT" envDefault:"3000"`
	MLServiceURL string `env:"ML_SERVICE_URL" envDefault:"http://127.0.0.1:8001"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	DatabaseURL        string `env:"DATABASE_URL"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"dev-secret-change-this"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleAuthURI      string `env:"GOOGLE_AUTH_URI" envDefault:"https://accounts.google.com/o/oauth2/auth"`
	GoogleTokenURI     string `env:"GOOGLE_TOKEN_URI" envDefault:"https://oauth2.googleapis.com/token"`
	GoogleUserInfoURI  string `env:"GOOGLE_USERINFO_URI" envDefault:"https://www.googleapis.com/oauth2/v3/userinfo"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	StaticDir string `env:"STATIC_DIR" envDefault:"public"`
	RateLimit int    `env:"RATE_LIMIT" envDefault:"120"`
}

const adminTokenTTL = 12 * time.Hour

// createStore picks the prediction store for this deployment: the managed
// store when its credentials are present, a local database when DATABASE_URL
// is set, and the mock dataset otherwise.
func createStore(cfg GatewayConfig) store.Store {
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		log.Println("using supabase store")
		return store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	}

	if cfg.DatabaseURL != "" {
		log.Println("using local store")
		localStore, err := store.NewLocalStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open local store: %v", err)
		}
		return localStore
	}

	log.Println("no store configured, serving mock predictions")
	return store.NewMockStore()
}

func main() {
	log.Println("Starting gateway...")

	cmd.LoadEnvFile()

	var cfg GatewayConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	predictionStore := createStore(cfg)
	mlClient := mlclient.NewClient(cfg.MLServiceURL)
	tokens := auth.NewTokenManager(cfg.JWTSecret, adminTokenTTL)
	google := oauth.NewGoogleClient(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		AuthURI:      cfg.GoogleAuthURI,
		TokenURI:     cfg.GoogleTokenURI,
		UserInfoURI:  cfg.GoogleUserInfoURI,
		RedirectURI:  cfg.GoogleRedirectURI,
	})

	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			api.WriteJsonError(w, http.StatusTooManyRequests, "rate_limit_exceeded")
		}),
	))

	gateway := api.NewGatewayService(mlClient, predictionStore, tokens, google, cfg.AdminAPIKey)
	gateway.AddRoutes(r)

	// Marketing site assets
	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("Gateway listening on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
