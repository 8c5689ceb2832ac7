package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/middleware"
	"github.com/tripexl/service-dispatch/internal/response"
)

// WaypointRequest is a map click.
type WaypointRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// ToggleRequest switches an overlay on or off.
type ToggleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// ChecklistItemRequest selects or deselects one checklist item.
type ChecklistItemRequest struct {
	Item     string `json:"item" binding:"required"`
	Selected *bool  `json:"selected" binding:"required"`
}

// SessionHandler handles HTTP requests for the booking screen.
type SessionHandler struct {
	service *application.PlannerService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *application.PlannerService) *SessionHandler {
	return &SessionHandler{service: service}
}

// RegisterRoutes registers session and geocoding routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api/v1")
	api.Use(middleware.OwnerMiddleware())
	{
		api.GET("/geocode", h.Geocode)

		sessions := api.Group("/sessions")
		sessions.POST("", h.OpenSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.ClearSession)
		sessions.POST("/:id/waypoints", h.AddWaypoint)
		sessions.POST("/:id/route", h.ComputeRoute)
		sessions.GET("/:id/metrics", h.Metrics)
		sessions.PUT("/:id/traffic", h.SetTraffic)
		sessions.POST("/:id/map-ready", h.MapReady)
		sessions.GET("/:id/scene", h.Scene)
		sessions.GET("/:id/checklists", h.Checklists)
		sessions.PUT("/:id/checklists/:category", h.SetChecklistItem)
		sessions.POST("/:id/book", h.Book)
	}
}

// OpenSession handles POST /api/v1/sessions.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.OpenSession(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.GetSession(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ClearSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) ClearSession(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.ClearSession(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AddWaypoint handles POST /api/v1/sessions/:id/waypoints.
func (h *SessionHandler) AddWaypoint(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	var req WaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pt := route.Waypoint{Lat: *req.Lat, Lng: *req.Lng}
	result, err := h.service.AddWaypoint(c.Request.Context(), owner, c.Param("id"), pt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ComputeRoute handles POST /api/v1/sessions/:id/route.
func (h *SessionHandler) ComputeRoute(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.ComputeRoute(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Metrics handles GET /api/v1/sessions/:id/metrics?vehicle=van.
func (h *SessionHandler) Metrics(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	vehicle := c.Query("vehicle")
	if vehicle == "" {
		response.BadRequest(c, "vehicle query parameter is required")
		return
	}

	result, err := h.service.Metrics(c.Request.Context(), owner, c.Param("id"), vehicle)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetTraffic handles PUT /api/v1/sessions/:id/traffic.
func (h *SessionHandler) SetTraffic(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetTraffic(c.Request.Context(), owner, c.Param("id"), *req.Visible)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// MapReady handles POST /api/v1/sessions/:id/map-ready.
func (h *SessionHandler) MapReady(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.MapReady(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Scene handles GET /api/v1/sessions/:id/scene.
func (h *SessionHandler) Scene(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.Scene(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Checklists handles GET /api/v1/sessions/:id/checklists.
func (h *SessionHandler) Checklists(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.Checklists(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetChecklistItem handles PUT /api/v1/sessions/:id/checklists/:category.
func (h *SessionHandler) SetChecklistItem(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	var req ChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	category := checklist.Category(c.Param("category"))
	result, err := h.service.SetChecklistItem(c.Request.Context(), owner, c.Param("id"), category, req.Item, *req.Selected)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Book handles POST /api/v1/sessions/:id/book.
func (h *SessionHandler) Book(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	var req application.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Book(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Geocode handles GET /api/v1/geocode?q=.
func (h *SessionHandler) Geocode(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.Geocode(c.Request.Context(), owner, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
