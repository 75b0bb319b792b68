package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"esports-predictor/internal/domain"
	"esports-predictor/internal/refresh"
	"esports-predictor/internal/storage"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Stage   domain.Stage       `json:"stage"`
	LastRun *domain.RefreshRun `json:"last_run,omitempty"`
	Clients int                `json:"websocket_clients"`
	Time    string             `json:"time"`
}

// ModelsResponse is the body of GET /api/models/{task}.
type ModelsResponse struct {
	Task        domain.Task            `json:"task"`
	Models      []domain.RegistryEntry `json:"models"`
	BestModelID *string                `json:"best_model_id"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports the refresh stage and the last finished cycle.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Stage: domain.StageIdle,
		Time:  h.now().UTC().Format(domain.TimestampLayout),
	}
	if h.opts.Hub != nil {
		resp.Clients = h.opts.Hub.ClientCount()
	}
	if rf := h.opts.Refresher; rf != nil {
		resp.Stage = rf.Stage()
		run, err := rf.LastRun(r.Context())
		switch {
		case err == nil:
			resp.LastRun = run
		case !errors.Is(err, storage.ErrNotFound):
			h.logger.Warn("read last refresh run failed", zap.Error(err))
		}
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// TriggerRefresh starts a refresh cycle in the background.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, _ *http.Request) {
	rf := h.opts.Refresher
	if rf == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}
	if rf.Stage() != domain.StageIdle {
		h.errorResponse(w, http.StatusConflict, refresh.ErrAlreadyRunning.Error())
		return
	}

	go func() {
		if _, err := rf.Run(h.opts.RefreshContext); err != nil {
			h.logger.Warn("manual refresh failed", zap.Error(err))
		}
	}()
	h.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Predictions returns the current batch. ?future=false disables the
// upcoming-only filter.
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	future := true
	if v := r.URL.Query().Get("future"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.errorResponse(w, http.StatusBadRequest, "future must be a boolean")
			return
		}
		future = b
	}

	preds, err := h.opts.Predictions.Current(r.Context(), future)
	if err != nil {
		h.logger.Error("read predictions failed", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, "failed to read predictions")
		return
	}
	h.jsonResponse(w, http.StatusOK, preds)
}

// PredictionHistory returns the history log filtered by ?player= and ?date=.
func (h *Handler) PredictionHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preds, err := h.opts.Predictions.History(r.Context(), q.Get("player"), q.Get("date"))
	if err != nil {
		h.logger.Error("read prediction history failed", zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, "failed to read prediction history")
		return
	}
	h.jsonResponse(w, http.StatusOK, preds)
}

// Models lists a registry.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	task, reg, ok := h.registry(w, r)
	if !ok {
		return
	}
	resp := ModelsResponse{Task: task, Models: reg.List()}
	if best, ok := reg.Best(); ok {
		id := best.ModelID
		resp.BestModelID = &id
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// BestModel returns the champion of a registry.
func (h *Handler) BestModel(w http.ResponseWriter, r *http.Request) {
	_, reg, ok := h.registry(w, r)
	if !ok {
		return
	}
	best, ok := reg.Best()
	if !ok {
		h.errorResponse(w, http.StatusNotFound, "no best model")
		return
	}
	h.jsonResponse(w, http.StatusOK, best)
}

// Model returns one registry entry.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	_, reg, ok := h.registry(w, r)
	if !ok {
		return
	}
	entry, err := reg.Get(chi.URLParam(r, "modelID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.errorResponse(w, http.StatusNotFound, "model not found")
			return
		}
		h.errorResponse(w, http.StatusInternalServerError, "failed to read model")
		return
	}
	h.jsonResponse(w, http.StatusOK, entry)
}

// registry resolves {task} and reloads the registry so entries written by
// other processes are visible.
func (h *Handler) registry(w http.ResponseWriter, r *http.Request) (domain.Task, ModelRegistry, bool) {
	task := domain.Task(chi.URLParam(r, "task"))
	if !task.Valid() {
		h.errorResponse(w, http.StatusBadRequest, "task must be winner or score")
		return "", nil, false
	}
	reg, ok := h.opts.Registries[task]
	if !ok || reg == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "registry not configured")
		return "", nil, false
	}
	reg.Reload(r.Context())
	return task, reg, true
}
