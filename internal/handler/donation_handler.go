package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/model"
)

type donationResponse struct {
	Donation model.Donation `json:"donation"`
	Pending  bool           `json:"pending"`
	// Error carries a server rejection message when the write was kept
	// locally but refused remotely.
	Error string `json:"error,omitempty"`
}

// ListDonations serves the fallback-read path: fresh from the server when
// reachable, the local cache otherwise. Optional status and donor filters
// query the local store only.
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if status := r.URL.Query().Get("status"); status != "" {
		if !model.ValidStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		donations, err := h.donations.GetDonationsByStatus(ctx, status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, donations)
		return
	}

	if donor := r.URL.Query().Get("donor"); donor != "" {
		donorID, err := strconv.ParseInt(donor, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid donor id"})
			return
		}
		donations, err := h.donations.GetDonationsByDonor(ctx, donorID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, donations)
		return
	}

	donations, err := h.donations.GetDonations(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var d model.Donation
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, pending, err := h.donations.CreateDonation(r.Context(), d)
	if err != nil && !pending {
		writeError(w, err)
		return
	}

	resp := donationResponse{Donation: created, Pending: pending}
	if err != nil {
		resp.Error = err.Error()
	}
	status := http.StatusCreated
	if pending {
		// Durable locally, awaiting server confirmation.
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (h *Handler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid donation id"})
		return
	}

	var d model.Donation
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, pending, err := h.donations.UpdateDonation(r.Context(), id, d)
	if err != nil && !pending {
		writeError(w, err)
		return
	}
	resp := donationResponse{Donation: updated, Pending: pending}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid donation id"})
		return
	}
	if err := h.donations.DeleteDonation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	confirmed, err := h.donations.SyncUnsynced(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"confirmed": confirmed})
}

// LiveDonations streams donation snapshots as server-sent events whenever
// the underlying rows change. The subscription ends when the client
// disconnects.
func (h *Handler) LiveDonations(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots := h.donations.WatchDonations(r.Context())
	for snapshot := range snapshots {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}
