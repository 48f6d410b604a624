package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mhollis/dutywheel/internal/cadence"
	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/rotation"
	"github.com/mhollis/dutywheel/internal/store"
	"github.com/mhollis/dutywheel/internal/websocket"
)

type RotationHandler struct {
	rotations *store.RotationStore
	groups    *store.GroupStore
	service   *rotation.Service
	hub       *websocket.Hub
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewRotationHandler(rotations *store.RotationStore, groups *store.GroupStore, service *rotation.Service, hub *websocket.Hub, logger *slog.Logger) *RotationHandler {
	return &RotationHandler{
		rotations: rotations,
		groups:    groups,
		service:   service,
		hub:       hub,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *RotationHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type rotationRequest struct {
	GroupID       int64   `json:"group_id" validate:"required,gt=0"`
	Name          string  `json:"name" validate:"required"`
	Cadence       string  `json:"cadence" validate:"required,oneof=daily weekly monthly"`
	WeeklyDays    []int   `json:"weekly_days" validate:"omitempty,dive,gte=0,lte=6"`
	MonthlyDay    int     `json:"monthly_day" validate:"gte=0,lte=31"`
	Roster        []int64 `json:"roster" validate:"required,min=1,dive,gt=0"`
	AllowMultiple bool    `json:"allow_multiple"`
	Points        int     `json:"points" validate:"gte=0"`
}

// definition builds the model from a validated request and checks the
// cadence-specific fields the tag rules cannot express.
func (h *RotationHandler) definition(req *rotationRequest) (*model.RotationDefinition, error) {
	def := &model.RotationDefinition{
		GroupID:       req.GroupID,
		Name:          strings.TrimSpace(req.Name),
		Cadence:       model.Cadence(req.Cadence),
		WeeklyDays:    req.WeeklyDays,
		MonthlyDay:    req.MonthlyDay,
		Roster:        req.Roster,
		AllowMultiple: req.AllowMultiple,
		IsActive:      true,
		Points:        req.Points,
	}
	if _, err := cadence.FromDefinition(def); err != nil {
		return nil, err
	}
	return def, nil
}

func (h *RotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	def, err := h.definition(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	group, err := h.groups.GetByID(req.GroupID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check group"})
		return
	}
	if group == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "group not found"})
		return
	}

	created, err := h.rotations.Create(def)
	if err != nil {
		h.logger.Error("create rotation definition", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create rotation"})
		return
	}

	h.broadcast(websocket.NewEvent("rotation", "created", created.GroupID, created.ID, nil))

	writeJSON(w, http.StatusCreated, created)
}

func (h *RotationHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "group_id is required"})
		return
	}

	defs, err := h.rotations.ListByGroup(groupID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rotations"})
		return
	}
	if defs == nil {
		defs = []model.RotationDefinition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *RotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *RotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}

	var req rotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.GroupID = existing.GroupID // ownership never moves on update
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	def, err := h.definition(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	def.ID = existing.ID
	def.IsActive = existing.IsActive

	// Keep the pointer inside the (possibly shorter) new roster.
	def.CurrentIndex = existing.CurrentIndex
	if def.CurrentIndex >= len(def.Roster) {
		def.CurrentIndex = 0
	}

	updated, err := h.rotations.Update(def)
	if err != nil {
		h.logger.Error("update rotation definition", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update rotation"})
		return
	}

	h.broadcast(websocket.NewEvent("rotation", "updated", updated.GroupID, updated.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

func (h *RotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}

	if err := h.rotations.Delete(def.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete rotation"})
		return
	}

	h.broadcast(websocket.NewEvent("rotation", "deleted", def.GroupID, def.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Skip advances past the current on-duty member without touching instances.
func (h *RotationHandler) Skip(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	event, err := h.service.Skip(def.ID, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if event == nil {
		// Shared-duty definitions have no pointer to advance.
		writeJSON(w, http.StatusOK, map[string]string{"status": "noop"})
		return
	}

	h.broadcast(websocket.NewEvent("rotation", "advanced", def.GroupID, def.ID, map[string]any{
		"member": event.ChosenMemberID,
		"source": string(event.Source),
	}))

	writeJSON(w, http.StatusOK, event)
}

func (h *RotationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

func (h *RotationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *RotationHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var def *model.RotationDefinition
	if paused {
		def, err = h.service.Pause(id)
	} else {
		def, err = h.service.Resume(id)
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	action := "resumed"
	if paused {
		action = "paused"
	}
	h.broadcast(websocket.NewEvent("rotation", action, def.GroupID, def.ID, nil))

	writeJSON(w, http.StatusOK, def)
}

// Assignees reports whose turn it is and who is next.
func (h *RotationHandler) Assignees(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	pair, err := h.service.Assignees(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Events returns the advance audit trail for a definition.
func (h *RotationHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	events, err := h.service.ListEvents(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.RotationEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *RotationHandler) loadDefinition(w http.ResponseWriter, r *http.Request) (*model.RotationDefinition, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	def, err := h.rotations.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get rotation"})
		return nil, false
	}
	if def == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rotation not found"})
		return nil, false
	}
	return def, true
}

func (h *RotationHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rotation.ErrDefinitionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rotation not found"})
	case errors.Is(err, rotation.ErrEmptyRoster):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "rotation roster is empty"})
	default:
		h.logger.Error("rotation operation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rotation operation failed"})
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
