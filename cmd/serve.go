package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/analytics"
	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/report"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv := newServer(engine, func(ctx context.Context) (*dataset.Snapshot, error) {
			return loadSnapshot(ctx, cfg)
		}, reg, cfg.Query)
		if _, err := srv.reload(ctx); err != nil {
			return eris.Wrap(err, "initial load")
		}
		if every := time.Duration(cfg.Server.RefreshSecs) * time.Second; every > 0 {
			go srv.refresh(ctx, every)
		}

		return startServer(ctx, buildRouter(srv, cfg.Server.CORSOrigins, reg), resolvePort(servePort, cfg.Server.Port))
	},
}

// server answers queries against the current snapshot. Reload swaps the
// snapshot wholesale; in-flight queries keep the one they started with.
type server struct {
	engine   *analytics.Engine
	load     func(ctx context.Context) (*dataset.Snapshot, error)
	defaults config.QueryConfig
	metrics  *serverMetrics

	snap     atomic.Pointer[dataset.Snapshot]
	reloadMu sync.Mutex
}

func newServer(engine *analytics.Engine, load func(ctx context.Context) (*dataset.Snapshot, error), reg prometheus.Registerer, defaults config.QueryConfig) *server {
	return &server{
		engine:   engine,
		load:     load,
		defaults: defaults,
		metrics:  newServerMetrics(reg),
	}
}

// reload rebuilds the snapshot. On failure the previous snapshot stays.
func (s *server) reload(ctx context.Context) (*dataset.Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		return nil, err
	}
	s.snap.Store(snap)
	s.metrics.reloads.WithLabelValues("ok").Inc()
	s.metrics.records.Set(float64(snap.Len()))
	zap.L().Info("snapshot loaded", zap.Int("records", snap.Len()))
	return snap, nil
}

// buildRouter wires the HTTP API.
func buildRouter(s *server, origins []string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/describe", s.handleDescribe)
		r.Post("/query", s.handleQuery)
		r.Post("/reload", s.handleReload)
	})
	return r
}

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an ID, keeping one the client sent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := report.JSON(w, v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.snap.Load()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": snap.Len()})
}

func (s *server) handleDescribe(w http.ResponseWriter, _ *http.Request) {
	snap := s.snap.Load()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}
	writeJSON(w, http.StatusOK, report.Describe(snap))
}

// handleQuery runs a JSON-encoded query. Malformed queries are 400;
// unanswerable ones are 200 with a diagnostic. ?format=markdown returns the
// text rendering.
func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q analytics.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = report.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	snap := s.snap.Load()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}

	start := time.Now()
	res, err := s.engine.Run(snap, applyQueryDefaults(q, s.defaults))
	question := questionLabel(q.Question)
	s.metrics.latency.WithLabelValues(question).Observe(time.Since(start).Seconds())

	if err != nil {
		var ipe *analytics.InvalidParameterError
		if errors.As(err, &ipe) {
			s.metrics.queries.WithLabelValues(question, "invalid").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":     ipe.Error(),
				"parameter": ipe.Param,
			})
			return
		}
		s.metrics.queries.WithLabelValues(question, "error").Inc()
		zap.L().Error("query failed", zap.String("question", question), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.metrics.queries.WithLabelValues(question, string(res.Status)).Inc()

	if format == report.FormatMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if err := report.Markdown(w, res); err != nil {
			zap.L().Warn("write response", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// questionLabel bounds the metric label to the known question types.
func questionLabel(q analytics.QuestionType) string {
	parsed, err := analytics.ParseQuestionType(string(q))
	if err != nil {
		return "unknown"
	}
	return string(parsed)
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reload(r.Context())
	if err != nil {
		zap.L().Error("reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "records": snap.Len()})
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h until ctx is cancelled, then shuts down gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
