package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"personaquiz/internal/config"
	"personaquiz/internal/transport/rest/handler"
	"personaquiz/internal/transport/rest/middleware"
	"personaquiz/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Auth     middleware.TokenValidator
	Quiz     handler.QuizAPI
	Chat     handler.ChatAPI
	Analysis handler.AnalysisAPI
	WSHub    *ws.Hub
	Config   *config.Config
	Logger   *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(c.Quiz, c.Logger)
	chatHandler := handler.NewChatHandler(c.Chat, c.Analysis, c.Config.Chat.RequestTimeout, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.Auth)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.Config))
	r.Use(requestLogger(c.Logger.Named("http")))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/quizzes", quizHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/quizzes/{quizId}", quizHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/quizzes/{quizId}/stats", quizHandler.Stats).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.Auth, c.Logger)
		v1.HandleFunc("/ws", wsHandler.Connect).Methods("GET")
	}

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/quizzes/{quizId}/submit", quizHandler.Submit).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/results/me", quizHandler.MyResults).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/results/{resultId}", quizHandler.GetResult).Methods("GET", "OPTIONS")

	userRoutes.HandleFunc("/chat/sessions", chatHandler.ListSessions).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/chat/sessions", chatHandler.CreateSession).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/chat/sessions/{sessionId}", chatHandler.DeleteSession).Methods("DELETE", "OPTIONS")
	userRoutes.HandleFunc("/chat/sessions/{sessionId}/messages", chatHandler.History).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/chat/sessions/{sessionId}/messages", chatHandler.PostMessage).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/chat/sessions/{sessionId}/analysis", chatHandler.Analyze).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigins)
			w.Header().Set("Access-Control-Allow-Methods", cfg.CORSMethods)
			w.Header().Set("Access-Control-Allow-Headers", cfg.CORSHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// websocket upgrades need the raw writer
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", time.Since(start)))
		})
	}
}
