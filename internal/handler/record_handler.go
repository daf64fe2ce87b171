package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/21Gxme/Agnos/internal/hub"
	"github.com/21Gxme/Agnos/internal/store"
	"github.com/21Gxme/Agnos/models"
)

// RecordHandler serves the request/response surface the fallback cascade uses
// when the realtime channel is down. Every operation, reads included, is
// routed through the hub so it runs on the same logical thread as the
// realtime sessions.
type RecordHandler struct {
	hub *hub.Hub
}

func NewRecordHandler(h *hub.Hub) *RecordHandler {
	return &RecordHandler{hub: h}
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	reply, err := h.hub.Call(r.Context(), hub.SubjRecordList, nil)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	recs, _ := reply.Data.([]models.Record)
	if recs == nil {
		recs = []models.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reply, err := h.hub.Call(r.Context(), hub.SubjRecordGet, id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	switch data := reply.Data.(type) {
	case models.Record:
		writeJSON(w, http.StatusOK, data)
	case error:
		if errors.Is(data, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, data.Error())
	default:
		writeError(w, http.StatusInternalServerError, "unexpected reply")
	}
}

// Create inserts a record, assigning an ID when absent.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := h.hub.Call(r.Context(), models.TypeRecordSubmit, rec)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	stored, ok := reply.Data.(models.Record)
	if !ok {
		writeError(w, http.StatusInternalServerError, "unexpected reply")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// Update full-replaces the record at the URL's ID. The body's ID, if any, is
// overridden by the path so a replace can never target another record.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rec models.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.ID = id
	reply, err := h.hub.Call(r.Context(), models.TypeRecordApply, rec)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	stored, ok := reply.Data.(models.Record)
	if !ok {
		writeError(w, http.StatusInternalServerError, "unexpected reply")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *RecordHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
