package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/response"
)

// AdminJobHandler handles admin HTTP requests for job oversight.
type AdminJobHandler struct {
	service *application.JobService
}

// NewAdminJobHandler creates a new AdminJobHandler.
func NewAdminJobHandler(service *application.JobService) *AdminJobHandler {
	return &AdminJobHandler{service: service}
}

// RegisterRoutes registers admin job routes. Access control is enforced upstream.
func (h *AdminJobHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/jobs", h.ListJobs)
		admin.GET("/stats/jobs", h.JobStats)
	}
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *AdminJobHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	jobs, total, err := h.service.ListAllJobs(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, jobs, total, page, limit)
}

// JobStats handles GET /api/v1/admin/stats/jobs.
func (h *AdminJobHandler) JobStats(c *gin.Context) {
	stats, err := h.service.GetJobStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
