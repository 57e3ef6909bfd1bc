package handler

import (
	"errors"
	"ithakabot/internal/model"
	"ithakabot/internal/service"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ApplicationHandler serves completed applications to admins
type ApplicationHandler struct {
	appSvc *service.ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(appSvc *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{appSvc: appSvc}
}

// List handles GET /v1/applications?path=full&limit=20
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ApplicationFilter{Path: model.ApplicationPath(q.Get("path"))}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	records, err := h.appSvc.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPath) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*model.ApplicationRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// Get handles GET /v1/applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.appSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, service.ErrApplicationNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}
