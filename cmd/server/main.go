package main

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockchat/pkg/chat"
	"stockchat/pkg/config"
	"stockchat/pkg/logger"
	"stockchat/pkg/marketdata"
	"stockchat/pkg/metrics"
	"stockchat/pkg/quotecache"
	"stockchat/pkg/session"
)

//go:embed templates/index.html
var templateFS embed.FS

const sessionMaxIdle = 2 * time.Hour

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	log := logger.Log

	log.Info("starting stockchat server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	log.Info("configuration loaded",
		zap.Int("port", cfg.HTTPPort),
		zap.Strings("symbols", cfg.Symbols),
		zap.Bool("quote_cache", cfg.RedisURL != ""))

	// Optional Redis quote cache
	var cache *quotecache.Cache
	if cfg.RedisURL != "" {
		cache, err = quotecache.New(cfg.RedisURL, cfg.QuoteCacheTTL)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close()
	}

	// Session tokens are signed with an ephemeral key; a restart drops all
	// sessions, which is the intended lifecycle.
	tokens, err := session.NewTokenService("stockchat", sessionMaxIdle)
	if err != nil {
		log.Fatal("failed to initialize session tokens", zap.Error(err))
	}

	sessions := session.NewStore(sessionMaxIdle)

	srv := &Server{
		cfg:      cfg,
		quotes:   marketdata.New(cfg.StockAPIBaseURL, cfg.StockAPIKey, cfg.FetchTimeout),
		chat: chat.New(chat.Options{
			APIKey:    cfg.DeepSeekAPIKey,
			BaseURL:   cfg.DeepSeekBaseURL,
			Model:     cfg.DeepSeekModel,
			MaxTokens: cfg.ChatMaxTokens,
			Timeout:   cfg.ChatTimeout,
		}),
		cache:    cache,
		sessions: sessions,
		tokens:   tokens,
		tmpl:     template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}

	router := srv.routes()
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)
	router.Use(metricsMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Sweep idle sessions in the background
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					log.Info("swept idle sessions", zap.Int("count", n))
				}
			}
		}
	}()

	go func() {
		log.Info("starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// routes builds the router; middleware is attached by the caller.
func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", s.indexHandler).Methods("GET")
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/ready", s.readyHandler).Methods("GET")
	router.Handle("/metrics", metrics.Handler())

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/quotes/{symbol}", s.getQuotesHandler).Methods("GET")
	apiRouter.HandleFunc("/session", s.createSessionHandler).Methods("POST")

	// Chat endpoints require a session token
	chatRouter := apiRouter.PathPrefix("").Subrouter()
	chatRouter.Use(s.tokens.Middleware)
	chatRouter.HandleFunc("/session/history", s.historyHandler).Methods("GET")
	chatRouter.HandleFunc("/chat", s.chatHandler).Methods("POST")

	return router
}

// loggingMiddleware logs each request with its duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start).Seconds()

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}
		status := fmt.Sprintf("%d", rec.status)
		metrics.APIRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration)
		metrics.APIRequestTotal.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}
