package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teleconseil/prospect-cli/internal/enrich"
	"github.com/teleconseil/prospect-cli/internal/export"
	"github.com/teleconseil/prospect-cli/internal/model"
	"github.com/teleconseil/prospect-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the web frontend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{
			search: env.enricher,
			store:  env.store,
			limit:  cfg.Search.Limit,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(api),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// searchRunner is the slice of the enricher the handlers need.
type searchRunner interface {
	Run(ctx context.Context, sector, department string, limit int) ([]model.EnrichedRecord, error)
	Demo() bool
}

type apiServer struct {
	search searchRunner
	store  store.Store
	limit  int
}

func newRouter(s *apiServer) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/search", s.handleSearch)
	r.Put("/api/annotations/{siret}", s.handleAnnotate)
	r.Post("/api/export", s.handleExport)
	return r
}

// searchRequest is the body shared by the search and export endpoints.
type searchRequest struct {
	Sector     string `json:"secteur"`
	Department string `json:"departement"`
	Limit      int    `json:"limite"`
}

func (s *apiServer) runSearch(r *http.Request) ([]model.EnrichedRecord, int, error) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, eris.New("invalid request body")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}

	records, err := s.search.Run(r.Context(), req.Sector, req.Department, limit)
	if err != nil {
		if errors.Is(err, enrich.ErrMissingCriteria) {
			return nil, http.StatusBadRequest, eris.New("secteur et departement sont requis")
		}
		return nil, http.StatusInternalServerError, err
	}
	return records, http.StatusOK, nil
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	records, status, err := s.runSearch(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resultats": records,
		"total":     len(records),
		"demo":      s.search.Demo(),
	})
}

func (s *apiServer) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	siret := chi.URLParam(r, "siret")

	var patch store.AnnotationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}

	ann, err := s.store.Upsert(r.Context(), siret, patch)
	if err != nil {
		zap.L().Error("annotation upsert failed", zap.String("siret", siret), zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.New("annotation could not be saved"))
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	records, status, err := s.runSearch(r)
	if err != nil {
		writeError(w, status, err)
		return
	}

	data, err := export.XLSX(records)
	if err != nil {
		if errors.Is(err, export.ErrNoActiveRecords) {
			writeError(w, http.StatusBadRequest, eris.New("aucune entreprise active à exporter"))
			return
		}
		zap.L().Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, eris.New("export failed"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", export.Filename(time.Now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestID tags each request, reusing the caller's X-Request-Id if set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", ww.Header().Get("X-Request-Id")),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
