package api

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed")
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, msg string) {
	h.jsonResponse(w, status, errorBody{Error: msg})
}
