// Package server exposes intake and customer status over HTTP for the
// browser dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/orchestrator"
	"github.com/sells-group/audit-cli/internal/store"
)

// Server serves the audit HTTP API.
type Server struct {
	store store.Store
	orch  *orchestrator.Orchestrator
	port  int

	router chi.Router
}

// New builds the server and its routes.
func New(st store.Store, orch *orchestrator.Orchestrator, port int, allowedOrigins []string) *Server {
	s := &Server{store: st, orch: orch, port: port}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/intake", s.handleIntake)
		r.Get("/customers", s.handleListCustomers)
		r.Get("/customers/{idOrSlug}", s.handleGetCustomer)
		r.Post("/customers/{idOrSlug}/audit", s.handleRetrigger)
		r.Get("/customers/{idOrSlug}/result", s.handleGetResult)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("http server listening", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req model.IntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	resp, err := s.orch.Intake(r.Context(), req)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  "validation failed",
				"field":  verr.Field,
				"reason": verr.Reason,
			})
			return
		}
		zap.L().Error("intake failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "intake failed")
		return
	}
	respondJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CustomerFilter{
		Status: model.CustomerStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	customers, err := s.store.ListCustomers(r.Context(), filter)
	if err != nil {
		zap.L().Error("list customers failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.orch.Refresh(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
		zap.L().Error("get customer failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (s *Server) handleRetrigger(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.orch.Retrigger(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
		zap.L().Error("retrigger failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "retrigger failed")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	customer, err := s.orch.Refresh(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	result, err := s.store.GetLatestResult(r.Context(), customer.ID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no completed audit yet")
			return
		}
		zap.L().Error("get result failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "result lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
