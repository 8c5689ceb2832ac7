package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/geo"
	"github.com/tripexl/service-dispatch/internal/middleware"
	"github.com/tripexl/service-dispatch/internal/response"
)

// JobHandler handles HTTP requests for stored jobs and the dashboard map.
type JobHandler struct {
	service *application.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(service *application.JobService) *JobHandler {
	return &JobHandler{service: service}
}

// RegisterRoutes registers job and dashboard routes on the given router group.
func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api/v1")
	api.Use(middleware.OwnerMiddleware())
	{
		jobs := api.Group("/jobs")
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.DELETE("/:id", h.DeleteJob)
		jobs.POST("/:id/replan", h.Replan)

		dashboard := api.Group("/dashboard")
		dashboard.GET("/scene", h.Scene)
		dashboard.PUT("/traffic", h.SetTraffic)
		dashboard.POST("/map-ready", h.MapReady)
		dashboard.GET("/markers", h.MarkerAt)
	}
}

// ListJobs handles GET /api/v1/jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.ListJobs(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.GetJob(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteJob handles DELETE /api/v1/jobs/:id.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	if err := h.service.DeleteJob(c.Request.Context(), owner, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Replan handles POST /api/v1/jobs/:id/replan.
func (h *JobHandler) Replan(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.Replan(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Scene handles GET /api/v1/dashboard/scene.
func (h *JobHandler) Scene(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.DashboardScene(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetTraffic handles PUT /api/v1/dashboard/traffic.
func (h *JobHandler) SetTraffic(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetDashboardTraffic(c.Request.Context(), owner, *req.Visible)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// MapReady handles POST /api/v1/dashboard/map-ready.
func (h *JobHandler) MapReady(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)
	result, err := h.service.DashboardMapReady(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// MarkerAt handles GET /api/v1/dashboard/markers?lat=&lng=.
func (h *JobHandler) MarkerAt(c *gin.Context) {
	owner, _ := middleware.GetOwnerID(c)

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		response.BadRequest(c, "lat and lng query parameters must be numbers")
		return
	}

	result, err := h.service.MarkerAt(c.Request.Context(), owner, geo.Point{Lat: lat, Lng: lng})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
