// Package api exposes operator actions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"redditfrost/internal/hunt"
	"redditfrost/internal/model"
	"redditfrost/internal/reddit"
	"redditfrost/internal/report"
	"redditfrost/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the subset of *hunt.Service the API drives.
type Service interface {
	TriggerCycle(ctx context.Context, campaignID string) (model.RunSummary, error)
	StartCampaign(ctx context.Context, id string) (model.Campaign, error)
	StopCampaign(ctx context.Context, id string) (model.Campaign, error)
	Status(ctx context.Context, id string) (hunt.CampaignStatus, error)
	Campaigns(ctx context.Context) ([]model.Campaign, error)
	Runs(ctx context.Context, campaignID string, n int) ([]model.RunSummary, error)
	Items(ctx context.Context, personaID string, states ...model.State) ([]model.ProcessedItem, error)
	SetItemState(ctx context.Context, personaID, sourceID, state string, meta *hunt.ItemMeta) (model.ProcessedItem, error)
	Post(ctx context.Context, campaignID, sourceID string) (model.ProcessedItem, error)
	PostDrafts(ctx context.Context, campaignID string, limit int) (hunt.PostReport, error)
	Analytics(ctx context.Context, personaID string) ([]hunt.DailyStats, error)
}

// Server is the operator HTTP server.
type Server struct {
	svc          Service
	router       chi.Router
	cycleTimeout time.Duration
	now          func() time.Time

	// bgCtx bounds background posting runs; Start replaces it with its own context.
	bgCtx   context.Context
	mu      sync.Mutex
	posting map[string]bool
}

// New creates a new server. cycleTimeout bounds cycles triggered over HTTP.
func New(svc Service, cycleTimeout time.Duration) *Server {
	s := &Server{
		svc:          svc,
		cycleTimeout: cycleTimeout,
		now:          time.Now,
		bgCtx:        context.Background(),
		posting:      map[string]bool{},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/campaigns", s.handleListCampaigns)
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", s.handleCampaignStatus)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Post("/cycle", s.handleCycle)
			r.Get("/runs", s.handleRuns)
			r.Post("/items/{sourceID}/post", s.handlePost)
			r.Post("/post-drafts", s.handlePostDrafts)
		})
		r.Route("/personas/{personaID}", func(r chi.Router) {
			r.Get("/items", s.handleItems)
			r.Get("/drafts", s.handleDrafts)
			r.Get("/analytics", s.handleAnalytics)
			r.Put("/items/{sourceID}/state", s.handleSetState)
		})
	})
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.bgCtx = ctx
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// --- Campaign Handlers ---

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.Campaigns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": cs})
}

func (s *Server) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.StartCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.StopCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}
	sum, err := s.svc.TriggerCycle(ctx, chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.svc.Runs(r.Context(), chi.URLParam(r, "campaignID"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	it, err := s.svc.Post(r.Context(), chi.URLParam(r, "campaignID"), chi.URLParam(r, "sourceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handlePostDrafts starts posting in the background: the jittered delay between
// writes is minutes long. One run per campaign at a time; results land in the
// item states and the log.
func (s *Server) handlePostDrafts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if !s.claimPosting(id) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "posting already running for campaign " + id})
		return
	}
	go func() {
		defer s.releasePosting(id)
		rep, err := s.svc.PostDrafts(s.bgCtx, id, limit)
		if err != nil {
			slog.Warn("api: posting drafts failed", "campaign", id, "posted", len(rep.Posted), "error", err)
			return
		}
		slog.Info("api: posted drafts", "campaign", id, "posted", len(rep.Posted), "failed", len(rep.Failed), "stopped", rep.Stopped)
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"campaign": id, "status": "posting", "limit": limit})
}

func (s *Server) claimPosting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.posting[id] {
		return false
	}
	s.posting[id] = true
	return true
}

func (s *Server) releasePosting(id string) {
	s.mu.Lock()
	delete(s.posting, id)
	s.mu.Unlock()
}

// --- Item Handlers ---

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	var states []model.State
	for _, raw := range r.URL.Query()["state"] {
		for _, part := range strings.Split(raw, ",") {
			st, err := model.ParseState(part)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			states = append(states, st)
		}
	}
	items, err := s.svc.Items(r.Context(), chi.URLParam(r, "personaID"), states...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleDrafts(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "personaID")
	items, err := s.svc.Items(r.Context(), pid, model.StateDrafted)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") != "markdown" {
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
		return
	}
	md, err := report.Render(report.FromItems("Drafts {.CurrentDate}", pid, items, s.now()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(md))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Analytics(r.Context(), chi.URLParam(r, "personaID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analytics": stats})
}

type setStateRequest struct {
	State string `json:"state"`
	hunt.ItemMeta
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	var meta *hunt.ItemMeta
	if req.Community != "" || req.URL != "" {
		meta = &req.ItemMeta
	}
	it, err := s.svc.SetItemState(r.Context(), chi.URLParam(r, "personaID"), chi.URLParam(r, "sourceID"), req.State, meta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hunt.ErrCampaignNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hunt.ErrInvalidState), errors.Is(err, hunt.ErrMissingMeta):
		return http.StatusBadRequest
	case errors.Is(err, hunt.ErrInvalidTransition), errors.Is(err, hunt.ErrNotDrafted), errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, hunt.ErrCapReached):
		return http.StatusTooManyRequests
	case errors.Is(err, hunt.ErrConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reddit.ErrNotAuthenticated):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api: request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
