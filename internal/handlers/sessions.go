package handlers

import (
	"net/http"
	"strings"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/services"
)

func (h *Handlers) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	sess, err := h.Sessions.Open(r.Context(), services.OpenRequest{
		Tournament: req.Tournament,
		Mode:       services.Mode(strings.ToLower(strings.TrimSpace(req.Mode))),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, sess)
}

func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	sess, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, sess)
}

func (h *Handlers) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Sessions.Close(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// handleProjection returns the late-rounds bracket. from_round defaults to
// the quarterfinals.
func (h *Handlers) handleProjection(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	fromRound, err := parseIntQuery(r, "from_round", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	proj, err := h.Sessions.Projection(r.Context(), id, fromRound)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, proj)
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.MatchID == nil || req.WinnerID == nil {
		respondError(w, BadRequest("match_id and winner_id are required"))
		return
	}

	result, err := h.Sessions.Predict(r.Context(), id, bracket.PredictionInput{
		MatchID:     *req.MatchID,
		WinnerID:    *req.WinnerID,
		WinnerScore: req.WinnerScore,
		LoserScore:  req.LoserScore,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := h.Sessions.Refresh(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleSave(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := h.Sessions.Save(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, result)
}

func (h *Handlers) handleShareURL(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	url, err := h.Sessions.ShareURL(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ShareResponse{URL: url})
}

func (h *Handlers) handleShareQR(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	png, err := h.Sessions.ShareQR(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
