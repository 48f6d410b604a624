package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/store"
)

type GroupHandler struct {
	groups *store.GroupStore
	logger *slog.Logger
}

func NewGroupHandler(groups *store.GroupStore, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list groups"})
		return
	}
	if groups == nil {
		groups = []model.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	group, err := h.groups.Create(req.Name)
	if err != nil {
		h.logger.Error("create group", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create group"})
		return
	}
	writeJSON(w, http.StatusCreated, group)
}
