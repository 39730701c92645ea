package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/analysis"
	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/store"
	"github.com/reviewlens/reviews-cli/internal/tracker"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Exposes project management, ingest and analysis triggers, and progress polling over HTTP. Ingest and analysis run asynchronously; clients poll progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{store: env.Store, tracker: env.Tracker, runCtx: ctx}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer carries the handler dependencies. runCtx outlives individual
// requests so asynchronous ingest/analysis runs survive the 202 response.
type apiServer struct {
	store   store.Store
	tracker *tracker.Tracker
	runCtx  context.Context
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", s.createProject)
		r.Get("/", s.listProjects)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.projectSummary)
			r.Delete("/", s.deleteProject)
			r.Post("/ingest", s.triggerIngest)
			r.Post("/analyze", s.triggerAnalysis)
			r.Get("/progress", s.getProgress)
			r.Get("/analyses", s.recentAnalyses)
		})
	})

	return r
}

func (s *apiServer) createProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Owner       string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := s.store.CreateProject(r.Context(), req.Name, req.Description, req.Owner)
	if err != nil {
		zap.L().Error("create project failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create project")
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (s *apiServer) listProjects(w http.ResponseWriter, r *http.Request) {
	filter := store.ProjectFilter{
		Status: model.ProjectStatus(r.URL.Query().Get("status")),
		Owner:  r.URL.Query().Get("owner"),
	}
	projects, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		zap.L().Error("list projects failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list projects")
		return
	}
	writeData(w, http.StatusOK, projects)
}

func (s *apiServer) projectSummary(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	summary, err := s.store.ProjectSummary(r.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		zap.L().Error("project summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load project")
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (s *apiServer) deleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	err := s.store.DeleteProject(r.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		zap.L().Error("delete project failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete project")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"deleted": projectID})
}

func (s *apiServer) triggerIngest(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		Location string `json:"location"`
		Max      int    `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}
	max := req.Max
	if max == 0 {
		max = cfg.Ingest.MaxReviews
	}

	go func() {
		report, err := s.tracker.Ingest(s.runCtx, projectID, req.Location, max)
		if err != nil {
			zap.L().Error("async ingest failed",
				zap.String("project_id", projectID),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("async ingest complete",
			zap.String("project_id", projectID),
			zap.Int("reviews", report.ReviewCount),
		)
	}()

	writeData(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"project_id": projectID,
	})
}

func (s *apiServer) triggerAnalysis(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode := analysis.Mode(req.Mode)
	if req.Mode == "" {
		mode = analysis.Mode(cfg.Analysis.Mode)
	}
	if mode != analysis.ModeStandard && mode != analysis.ModeFast {
		writeError(w, http.StatusBadRequest, "mode must be standard or fast")
		return
	}

	go func() {
		report, err := s.tracker.RunAnalysis(s.runCtx, projectID, mode)
		if err != nil {
			zap.L().Error("async analysis failed",
				zap.String("project_id", projectID),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("async analysis complete",
			zap.String("project_id", projectID),
			zap.Int("analyzed", report.ReviewCount),
			zap.Int("skipped", report.Skipped),
		)
	}()

	writeData(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"project_id": projectID,
	})
}

func (s *apiServer) getProgress(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	progress, err := s.tracker.GetProgress(r.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		zap.L().Error("get progress failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load progress")
		return
	}
	writeData(w, http.StatusOK, progress)
}

func (s *apiServer) recentAnalyses(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	analyses, err := s.store.RecentAnalyses(r.Context(), projectID, limit)
	if err != nil {
		zap.L().Error("recent analyses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load analyses")
		return
	}
	writeData(w, http.StatusOK, analyses)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
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
