package handlers

import (
	"net/http"
	"strings"
)

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "database unavailable"})
			return
		}
	}
	resp := HealthResponse{Status: "ok"}
	if h.Sessions != nil {
		resp.Sessions = h.Sessions.Count()
	}
	respondOK(w, resp)
}

func (h *Handlers) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tournaments.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handlers) handleMatchup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matchup, err := h.Tournaments.Matchup(r.Context(), q.Get("player"), q.Get("opponent"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, matchup)
}

func (h *Handlers) handleListBrackets(w http.ResponseWriter, r *http.Request) {
	list, err := h.Brackets.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handlers) handleDeleteBracket(w http.ResponseWriter, r *http.Request) {
	key, err := urlParam(r, "key")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Brackets.Delete(r.Context(), key); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	baseURL, err := h.Settings.GetBaseURL(r.Context())
	if err != nil {
		respondError(w, InternalError(err))
		return
	}
	respondOK(w, SettingsResponse{BaseURL: baseURL})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.BaseURL == nil {
		respondError(w, BadRequest("base_url is required"))
		return
	}
	baseURL := strings.TrimSpace(*req.BaseURL)
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		respondError(w, BadRequest("base_url must start with http:// or https://"))
		return
	}
	if err := h.Settings.SetBaseURL(r.Context(), baseURL); err != nil {
		respondError(w, InternalError(err))
		return
	}
	respondOK(w, SettingsResponse{BaseURL: baseURL})
}
