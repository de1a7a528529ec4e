package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/pipeline"
	"github.com/opengov-labs/govassist/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newAPIHandler(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newAPIHandler builds the chi router for the assistant API.
func newAPIHandler(env *assistantEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", handleExtract(env))
		r.Post("/analyze", handleAssist(env, "analyze", env.Assistant.Analyze))
		r.Post("/accountability", handleAssist(env, "accountability-check", env.Assistant.Accountability))
		r.Post("/chat", handleAssist(env, "general-chat", env.Assistant.Chat))
	})

	return r
}

type promptRequest struct {
	Prompt    string `json:"prompt"`
	UserEmail string `json:"user_email"`
}

func decodePrompt(w http.ResponseWriter, r *http.Request) (*promptRequest, bool) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return nil, false
	}
	if req.UserEmail == "" {
		req.UserEmail = "anonymous"
	}
	return &req, true
}

func handleExtract(env *assistantEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodePrompt(w, r)
		if !ok {
			return
		}
		result := env.Assistant.Extract(r.Context(), req.Prompt)
		writeJSON(w, http.StatusOK, result)
	}
}

// assistResponse wraps a pipeline result with the caller's remaining quota.
type assistResponse struct {
	*pipeline.Result
	RemainingRequests int `json:"remaining_requests"`
}

func handleAssist(env *assistantEnv, endpoint string, run func(context.Context, string) *pipeline.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodePrompt(w, r)
		if !ok {
			return
		}
		ctx := r.Context()

		allowed, remaining := env.Limiter.Check(ctx, req.UserEmail)
		if !allowed {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":              "rate limit exceeded",
				"remaining_requests": 0,
			})
			return
		}

		start := time.Now()
		result := run(ctx, req.Prompt)
		elapsed := time.Since(start)

		resultJSON, err := json.Marshal(result)
		if err != nil {
			resultJSON = nil
		}
		env.Limiter.LogQuery(ctx, &store.QueryLog{
			UserEmail:        req.UserEmail,
			Endpoint:         endpoint,
			Prompt:           req.Prompt,
			Result:           string(resultJSON),
			Success:          true,
			ProcessingTimeMS: elapsed.Milliseconds(),
		})

		zap.L().Info("request served",
			zap.String("endpoint", endpoint),
			zap.String("user", req.UserEmail),
			zap.Duration("elapsed", elapsed),
			zap.Int("proposals", len(result.Proposals)),
		)
		writeJSON(w, http.StatusOK, assistResponse{Result: result, RemainingRequests: remaining})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
