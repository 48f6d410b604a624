package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/mhollis/dutywheel/internal/cadence"
	"github.com/mhollis/dutywheel/internal/feed"
	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/rotation"
	"github.com/mhollis/dutywheel/internal/store"
	"github.com/mhollis/dutywheel/internal/websocket"
)

// InstanceHandler exposes the engine's group-level triggers and the instance
// lifecycle operations the surrounding task system performs. Completions and
// deletions publish change notifications; the engine reacts through its
// listener, not inline.
type InstanceHandler struct {
	instances *store.InstanceStore
	groups    *store.GroupStore
	service   *rotation.Service
	bus       *feed.Bus
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewInstanceHandler(instances *store.InstanceStore, groups *store.GroupStore, service *rotation.Service, bus *feed.Bus, hub *websocket.Hub, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{
		instances: instances,
		groups:    groups,
		service:   service,
		bus:       bus,
		hub:       hub,
		logger:    logger,
	}
}

func (h *InstanceHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

func (h *InstanceHandler) publish(n feed.Notification) {
	if h.bus != nil {
		h.bus.Publish(n)
	}
}

type ensureResponse struct {
	Created int      `json:"created"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// EnsureToday materializes and reconciles today's instances for a group.
// Partial failures come back in the errors list; the call itself succeeds.
func (h *InstanceHandler) EnsureToday(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	result, err := h.service.EnsureToday(group.ID)
	resp := ensureResponse{Created: result.Created, Deleted: result.Deleted}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}

	if result.Created > 0 {
		h.broadcast(websocket.NewEvent("instance", "generated", group.ID, 0, map[string]any{
			"created": result.Created,
		}))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reconcile runs the duplicate-collapse pass alone.
func (h *InstanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.ReconcileToday(group.ID)
	resp := ensureResponse{Deleted: deleted}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListForDay returns a group's instances for ?date= (default today).
func (h *InstanceHandler) ListForDay(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	key := cadence.DateKey(time.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want yyyy-mm-dd"})
			return
		}
		key = cadence.DateKey(d)
	}

	instances, err := h.instances.ListForDay(group.ID, key)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list instances"})
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// Complete records a completion and notifies the engine via the feed.
func (h *InstanceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.loadInstance(w, r)
	if !ok {
		return
	}

	var req struct {
		CompletedBy int64 `json:"completed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CompletedBy <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "completed_by is required"})
		return
	}

	completion, err := h.instances.CreateCompletion(inst.ID, req.CompletedBy)
	if err != nil {
		h.logger.Error("complete instance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete instance"})
		return
	}

	h.publish(feed.New(feed.TypeInstanceCompleted, inst.GroupID, inst.ID, defID(inst), inst.FirstAssignee()))
	h.broadcast(websocket.NewEvent("instance", "completed", inst.GroupID, inst.ID, map[string]any{
		"completed_by": req.CompletedBy,
	}))

	writeJSON(w, http.StatusCreated, completion)
}

// UndoComplete removes a completion record. Uncompletion does not rewind the
// rotation pointer; the advance already happened and stands.
func (h *InstanceHandler) UndoComplete(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.loadInstance(w, r)
	if !ok {
		return
	}

	completionID, err := strconv.ParseInt(r.PathValue("completion_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid completion_id"})
		return
	}

	if err := h.instances.DeleteCompletion(completionID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to undo completion"})
		return
	}

	h.broadcast(websocket.NewEvent("instance", "completion_undone", inst.GroupID, inst.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes an instance and notifies the engine, which advances and
// regenerates when the on-duty member's instance went away.
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.loadInstance(w, r)
	if !ok {
		return
	}

	if err := h.instances.Delete(inst.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete instance"})
		return
	}

	h.publish(feed.New(feed.TypeInstanceDeleted, inst.GroupID, inst.ID, defID(inst), inst.FirstAssignee()))
	h.broadcast(websocket.NewEvent("instance", "deleted", inst.GroupID, inst.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

func (h *InstanceHandler) loadGroup(w http.ResponseWriter, r *http.Request) (*model.Group, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group id"})
		return nil, false
	}

	group, err := h.groups.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get group"})
		return nil, false
	}
	if group == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "group not found"})
		return nil, false
	}
	return group, true
}

func (h *InstanceHandler) loadInstance(w http.ResponseWriter, r *http.Request) (*model.TaskInstance, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	inst, err := h.instances.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get instance"})
		return nil, false
	}
	if inst == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "instance not found"})
		return nil, false
	}
	return inst, true
}

func defID(inst *model.TaskInstance) int64 {
	if inst.RotationDefinitionID == nil {
		return 0
	}
	return *inst.RotationDefinitionID
}
