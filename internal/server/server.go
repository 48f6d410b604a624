package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhollis/dutywheel/internal/feed"
	"github.com/mhollis/dutywheel/internal/handler"
	"github.com/mhollis/dutywheel/internal/middleware"
	"github.com/mhollis/dutywheel/internal/rotation"
	"github.com/mhollis/dutywheel/internal/store"
	ws "github.com/mhollis/dutywheel/internal/websocket"
)

type Server struct {
	db        *sql.DB
	hub       *ws.Hub
	bus       *feed.Bus
	rotationH *handler.RotationHandler
	instanceH *handler.InstanceHandler
	groupH    *handler.GroupHandler
	listener  *rotation.Listener
	sweeper   *rotation.Sweeper
	limiter   *middleware.Limiter
	logger    *slog.Logger
}

func New(db *sql.DB, sweepInterval time.Duration, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	bus := feed.NewBus()

	groupStore := store.NewGroupStore(db)
	rotationStore := store.NewRotationStore(db)
	instanceStore := store.NewInstanceStore(db)
	eventStore := store.NewRotationEventStore(db)
	notificationStore := store.NewNotificationStore(db)

	generator := rotation.NewGenerator(rotationStore, instanceStore, logger.With("component", "generator"))
	reconciler := rotation.NewReconciler(rotationStore, instanceStore, logger.With("component", "reconciler"))
	advancer := rotation.NewAdvancer(rotationStore, eventStore, generator, logger.With("component", "advancer"))
	service := rotation.NewService(rotationStore, eventStore, generator, reconciler, advancer, logger.With("component", "rotation"))

	listener := rotation.NewListener(bus, notificationStore, advancer, logger.With("component", "listener"))
	sweeper := rotation.NewSweeper(service, groupStore, sweepInterval, logger.With("component", "sweeper"))

	return &Server{
		db:        db,
		hub:       hub,
		bus:       bus,
		rotationH: handler.NewRotationHandler(rotationStore, groupStore, service, hub, logger.With("component", "rotation_handler")),
		instanceH: handler.NewInstanceHandler(instanceStore, groupStore, service, bus, hub, logger.With("component", "instance_handler")),
		groupH:    handler.NewGroupHandler(groupStore, logger.With("component", "group_handler")),
		listener:  listener,
		sweeper:   sweeper,
		limiter:   middleware.NewLimiter(),
		logger:    logger,
	}
}

// Listener returns the feed listener so main can run its lifecycle.
func (s *Server) Listener() *rotation.Listener {
	return s.listener
}

// Sweeper returns the background sweeper so main can run its lifecycle.
func (s *Server) Sweeper() *rotation.Sweeper {
	return s.sweeper
}

// Bus returns the change-notification bus for shutdown.
func (s *Server) Bus() *feed.Bus {
	return s.bus
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Group routes
	mux.HandleFunc("GET /api/groups", s.groupH.List)
	mux.HandleFunc("POST /api/groups", s.groupH.Create)

	// Rotation definition routes
	mux.HandleFunc("POST /api/rotations", s.rotationH.Create)
	mux.HandleFunc("GET /api/rotations", s.rotationH.List)
	mux.HandleFunc("GET /api/rotations/{id}", s.rotationH.Get)
	mux.HandleFunc("PUT /api/rotations/{id}", s.rotationH.Update)
	mux.HandleFunc("DELETE /api/rotations/{id}", s.rotationH.Delete)
	mux.HandleFunc("POST /api/rotations/{id}/skip", s.rotationH.Skip)
	mux.HandleFunc("POST /api/rotations/{id}/pause", s.rotationH.Pause)
	mux.HandleFunc("POST /api/rotations/{id}/resume", s.rotationH.Resume)
	mux.HandleFunc("GET /api/rotations/{id}/assignees", s.rotationH.Assignees)
	mux.HandleFunc("GET /api/rotations/{id}/events", s.rotationH.Events)

	// Engine triggers, rate limited against dashboard polling
	rl := middleware.RateLimit(s.limiter, 30, time.Minute)
	mux.Handle("POST /api/groups/{id}/ensure-today", rl(http.HandlerFunc(s.instanceH.EnsureToday)))
	mux.Handle("POST /api/groups/{id}/reconcile", rl(http.HandlerFunc(s.instanceH.Reconcile)))

	// Instance routes
	mux.HandleFunc("GET /api/groups/{id}/instances", s.instanceH.ListForDay)
	mux.HandleFunc("POST /api/instances/{id}/complete", s.instanceH.Complete)
	mux.HandleFunc("DELETE /api/instances/{id}/completions/{completion_id}", s.instanceH.UndoComplete)
	mux.HandleFunc("DELETE /api/instances/{id}", s.instanceH.Delete)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
