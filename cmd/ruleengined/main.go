// Command ruleengined is a demonstration HTTP surface around the rule
// engine: it wires an engine.Engine per scope through scope.Manager and
// exposes add/get/list/enable/disable/status operations. The engine
// itself has no HTTP dependency; this is scaffolding to drive it, built as
// a chi-based admin server.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/openhab-automation/ruleengine/celhandler"
	"github.com/openhab-automation/ruleengine/engine"
	"github.com/openhab-automation/ruleengine/internal/logger"
	"github.com/openhab-automation/ruleengine/rules"
	"github.com/openhab-automation/ruleengine/scope"
)

type server struct {
	mgr    *scope.Manager
	router *chi.Mux
}

func newServer(mgr *scope.Manager) *server {
	s := &server{mgr: mgr}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/scopes", func(r chi.Router) {
		r.Get("/", s.handleListScopes)
		r.Post("/", s.handleCreateScope)

		r.Route("/{scopeId}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteScope)

			r.Route("/rules", func(r chi.Router) {
				r.Get("/", s.handleListRules)
				r.Post("/", s.handleAddRule)

				r.Route("/{ruleId}", func(r chi.Router) {
					r.Get("/", s.handleGetRule)
					r.Delete("/", s.handleRemoveRule)
					r.Get("/status", s.handleGetStatus)
					r.Put("/enabled", s.handleSetEnabled)
				})
			})
		})
	})

	s.router = r
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	scopes, _ := s.mgr.ListScopes(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"scopesLoaded": len(scopes),
	})
}

func (s *server) handleListScopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := s.mgr.ListScopes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list scopes", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}

func (s *server) handleCreateScope(w http.ResponseWriter, r *http.Request) {
	var req createScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	if err := s.mgr.CreateScope(r.Context(), req.ID, req.DisplayName); err != nil {
		if errors.Is(err, scope.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, "scope already exists", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create scope", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "displayName": req.DisplayName})
}

func (s *server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	scopeID := chi.URLParam(r, "scopeId")
	if err := s.mgr.DeleteScope(r.Context(), scopeID); err != nil {
		if errors.Is(err, scope.ErrNotFound) {
			respondError(w, http.StatusNotFound, "scope not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete scope", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	scopeID := chi.URLParam(r, "scopeId")
	e, ok := s.mgr.GetEngine(scopeID)
	if !ok {
		respondError(w, http.StatusNotFound, "scope not found", nil)
		return nil, false
	}
	return e, true
}

func (s *server) handleListRules(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": e.GetAll()})
}

func (s *server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	scopeID := chi.URLParam(r, "scopeId")

	var req addRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := &rules.Rule{
		UID:           req.UID,
		Name:          req.Name,
		TemplateUID:   req.TemplateUID,
		Triggers:      req.Triggers,
		Conditions:    req.Conditions,
		Actions:       req.Actions,
		Configuration: req.Configuration,
		Tags:          rules.NewTagSet(req.Tags...),
	}

	uid, err := e.Add(rule, scopeID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to add rule", err)
		return
	}

	added, _ := e.Get(uid)
	respondJSON(w, http.StatusCreated, added)
}

func (s *server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	rule, ok := e.Get(chi.URLParam(r, "ruleId"))
	if !ok {
		respondError(w, http.StatusNotFound, "rule not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *server) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	if !e.Remove(chi.URLParam(r, "ruleId")) {
		respondError(w, http.StatusNotFound, "rule not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	status, ok := e.GetStatus(chi.URLParam(r, "ruleId"))
	if !ok {
		respondError(w, http.StatusNotFound, "rule not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, toStatusResponse(status))
}

func (s *server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := e.SetEnabled(chi.URLParam(r, "ruleId"), req.Enabled); err != nil {
		respondError(w, http.StatusBadRequest, "failed to set enabled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]string{"error": message}
	if err != nil {
		resp["details"] = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Fatal("failed to open database", "err", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("failed to ping database", "err", err)
	}

	dir := scope.NewPostgresDirectory(db)
	mgr := scope.NewManager(dir, nil, func() []rules.ModuleHandlerFactory {
		cel, err := celhandler.New()
		if err != nil {
			logger.Error("failed to build cel handler factory", "err", err)
			return nil
		}
		return []rules.ModuleHandlerFactory{cel}
	})

	logger.Info("loading scopes from directory")
	if err := mgr.LoadAll(context.Background()); err != nil {
		logger.Fatal("failed to load scopes", "err", err)
	}
	scopes, _ := mgr.ListScopes(context.Background())
	logger.Info("scopes loaded", "count", len(scopes))

	srv := newServer(mgr)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "err", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "err", err)
	}
	logger.Info("server stopped")
}
