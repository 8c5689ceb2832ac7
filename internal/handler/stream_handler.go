package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/middleware"
	"github.com/tripexl/service-dispatch/internal/response"
	"github.com/tripexl/service-dispatch/internal/scene"
)

const (
	streamBuffer = 256
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = 2 * pingInterval
)

// StreamMessage is one frame sent to a scene subscriber.
type StreamMessage struct {
	Type     string          `json:"type"`
	Document *scene.Document `json:"document,omitempty"`
	Op       *scene.Op       `json:"op,omitempty"`
}

// clientMessage is a frame received from a scene subscriber.
type clientMessage struct {
	Type string `json:"type"`
}

// streamSource resolves the canvas to stream and the func that signals map readiness.
type streamSource func(ctx context.Context, owner string) (*scene.Canvas, func(), error)

// StreamHandler pushes live scene operations over websockets.
type StreamHandler struct {
	planner  *application.PlannerService
	jobs     *application.JobService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler creates a new StreamHandler. An empty origin list accepts any origin.
func NewStreamHandler(planner *application.PlannerService, jobs *application.JobService, origins []string, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		planner: planner,
		jobs:    jobs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket routes.
func (h *StreamHandler) RegisterRoutes(r *gin.RouterGroup) {
	scenes := r.Group("/api/v1/scenes")
	{
		scenes.GET("/session/:id/ws", h.SessionStream)
		scenes.GET("/dashboard/ws", h.DashboardStream)
	}
}

// SessionStream handles GET /api/v1/scenes/session/:id/ws.
func (h *StreamHandler) SessionStream(c *gin.Context) {
	id := c.Param("id")
	h.serve(c, func(ctx context.Context, owner string) (*scene.Canvas, func(), error) {
		return h.planner.Stream(ctx, owner, id)
	})
}

// DashboardStream handles GET /api/v1/scenes/dashboard/ws.
func (h *StreamHandler) DashboardStream(c *gin.Context) {
	h.serve(c, h.jobs.DashboardStream)
}

func (h *StreamHandler) serve(c *gin.Context, source streamSource) {
	// Browsers cannot set headers on a websocket handshake.
	owner := strings.TrimSpace(c.GetHeader(middleware.OwnerIDHeader))
	if owner == "" {
		owner = strings.TrimSpace(c.Query("owner_id"))
	}
	if owner == "" {
		response.Unauthorized(c, "missing owner id")
		return
	}

	canvas, ready, err := source(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ops := make(chan scene.Op, streamBuffer)
	overflow := make(chan struct{})
	var once sync.Once
	unsubscribe := canvas.Subscribe(func(op scene.Op) {
		select {
		case ops <- op:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	doc := canvas.Document()
	if err := h.write(conn, StreamMessage{Type: "snapshot", Document: &doc}); err != nil {
		return
	}

	closed := make(chan struct{})
	go h.readLoop(conn, ready, closed)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case op := <-ops:
			if err := h.write(conn, StreamMessage{Type: "op", Op: &op}); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-overflow:
			h.logger.Warn("scene subscriber too slow, closing stream", zap.String("owner_id", owner))
			return
		case <-closed:
			return
		}
	}
}

// readLoop handles client frames until the connection closes.
func (h *StreamHandler) readLoop(conn *websocket.Conn, ready func(), closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "ready":
			ready()
		default:
			h.logger.Debug("ignoring stream message", zap.String("type", msg.Type))
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
