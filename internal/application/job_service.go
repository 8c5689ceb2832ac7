package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/geo"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/scene"
)

// DefaultMarkerTolerance is how far, in meters, a click may land from a marker and still hit it.
const DefaultMarkerTolerance = 150.0

// dashboard is one owner's multi-job map. touched is guarded by JobService.mu.
type dashboard struct {
	mu       sync.Mutex
	canvas   *scene.Canvas
	renderer *scene.Renderer
	drawn    bool
	touched  time.Time
}

// JobService is the application service orchestrating stored-job use cases
// and the per-owner dashboard map.
type JobService struct {
	repo       jobDomain.Repository
	planner    *PlannerService
	publisher  events.Publisher
	notifier   notify.Notifier
	fitPadding int
	logger     *zap.Logger

	mu         sync.Mutex
	dashboards map[string]*dashboard
}

// NewJobService creates a new JobService.
func NewJobService(
	repo jobDomain.Repository,
	planner *PlannerService,
	publisher events.Publisher,
	notifier notify.Notifier,
	fitPadding int,
	logger *zap.Logger,
) *JobService {
	return &JobService{
		repo:       repo,
		planner:    planner,
		publisher:  publisher,
		notifier:   notifier,
		fitPadding: fitPadding,
		logger:     logger,
		dashboards: make(map[string]*dashboard),
	}
}

// ListJobs returns the owner's jobs in insertion order.
func (s *JobService) ListJobs(ctx context.Context, ownerID string) ([]JobDTO, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}
	jobs, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return toJobDTOs(jobs), nil
}

// GetJob returns one of the owner's jobs.
func (s *JobService) GetJob(ctx context.Context, ownerID, jobID string) (*JobDTO, error) {
	j, err := s.repo.FindByID(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	dto := toJobDTO(j)
	return &dto, nil
}

// DeleteJob removes one of the owner's jobs. Deleting a missing job is a no-op.
func (s *JobService) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	return s.RemoveJob(ctx, ownerID, jobID, "")
}

// RemoveJob removes a job and redraws the owner's dashboard. It is also the
// handler for cancel commands arriving over Kafka.
func (s *JobService) RemoveJob(ctx context.Context, ownerID, jobID, reason string) error {
	if _, err := s.repo.FindByID(ctx, ownerID, jobID); err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			s.logger.Debug("job already removed",
				zap.String("job_id", jobID),
				zap.String("owner_id", ownerID),
			)
			return nil
		}
		return err
	}

	if err := s.repo.Remove(ctx, ownerID, jobID); err != nil {
		return fmt.Errorf("failed to remove job: %w", err)
	}

	s.logger.Info("job deleted",
		zap.String("job_id", jobID),
		zap.String("owner_id", ownerID),
		zap.String("reason", reason),
	)

	now := time.Now().UTC()
	publishEvent(ctx, s.publisher, s.logger, events.TopicJobEvents, events.JobDeleted, jobID, events.JobDeletedEvent{
		JobID:     jobID,
		OwnerID:   ownerID,
		Reason:    reason,
		DeletedAt: now,
	})
	s.notifier.Notify(ctx, notify.Notification{
		Category: notify.JobDeleted,
		OwnerID:  ownerID,
		JobID:    jobID,
		Message:  "Job deleted successfully",
		At:       now,
	})

	if d := s.existingDashboard(ownerID); d != nil {
		if err := s.redraw(ctx, ownerID, d); err != nil {
			s.logger.Warn("failed to redraw dashboard", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
	return nil
}

// Replan opens a planning session seeded with a stored job's waypoints.
// The stored job is not modified.
func (s *JobService) Replan(ctx context.Context, ownerID, jobID string) (*SessionDTO, error) {
	j, err := s.repo.FindByID(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return s.planner.OpenSeededSession(ctx, ownerID, j.Waypoints())
}

// DashboardScene renders every job of the owner and exports the map.
func (s *JobService) DashboardScene(ctx context.Context, ownerID string) (*scene.Document, error) {
	d := s.dashboardFor(ownerID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := s.redrawLocked(ctx, ownerID, d); err != nil {
		return nil, err
	}
	doc := d.canvas.Document()
	return &doc, nil
}

// SetDashboardTraffic switches the dashboard traffic overlay.
func (s *JobService) SetDashboardTraffic(ctx context.Context, ownerID string, visible bool) (*scene.Document, error) {
	d := s.dashboardFor(ownerID)
	d.mu.Lock()
	defer d.mu.Unlock()

	d.renderer.SetTraffic(visible)
	doc := d.canvas.Document()
	return &doc, nil
}

// DashboardMapReady marks the dashboard map initialized and draws the jobs.
func (s *JobService) DashboardMapReady(ctx context.Context, ownerID string) (*scene.Document, error) {
	d := s.dashboardFor(ownerID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.markReadyLocked(d)
	if err := s.redrawLocked(ctx, ownerID, d); err != nil {
		return nil, err
	}
	doc := d.canvas.Document()
	return &doc, nil
}

// DashboardStream returns the owner's dashboard canvas for live
// subscription and a func to call once the client map is ready.
func (s *JobService) DashboardStream(ctx context.Context, ownerID string) (*scene.Canvas, func(), error) {
	if ownerID == "" {
		return nil, nil, domain.NewValidationError("owner ID is required")
	}
	d := s.dashboardFor(ownerID)
	ready := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		s.markReadyLocked(d)
		if err := s.redrawLocked(context.Background(), ownerID, d); err != nil {
			s.logger.Warn("failed to draw dashboard", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
	return d.canvas, ready, nil
}

// MarkerAt finds the dashboard marker nearest p and the job it belongs to.
func (s *JobService) MarkerAt(ctx context.Context, ownerID string, p geo.Point) (*MarkerHitDTO, error) {
	if !p.Valid() {
		return nil, domain.NewValidationError("click position is outside the valid coordinate range")
	}

	d := s.dashboardFor(ownerID)
	d.mu.Lock()
	if !d.drawn {
		if err := s.redrawLocked(ctx, ownerID, d); err != nil {
			d.mu.Unlock()
			return nil, err
		}
	}
	m, ok := d.renderer.MarkerAt(p, DefaultMarkerTolerance)
	d.mu.Unlock()
	if !ok || m.JobID == "" {
		return nil, domain.NewNotFoundError("Marker", fmt.Sprintf("near %.6f,%.6f", p.Lat, p.Lng))
	}

	j, err := s.repo.FindByID(ctx, ownerID, m.JobID)
	if err != nil {
		return nil, err
	}
	return &MarkerHitDTO{Marker: m, Job: toJobDTO(j)}, nil
}

// ListAllJobs returns a paginated list of every owner's jobs (admin).
func (s *JobService) ListAllJobs(ctx context.Context, page, limit int) ([]JobDTO, int64, error) {
	jobs, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return toJobDTOs(jobs), total, nil
}

// GetJobStats returns aggregate job statistics (admin).
func (s *JobService) GetJobStats(ctx context.Context) (*JobStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &JobStatsDTO{
		TotalJobs: total,
		ByStatus:  counts,
	}, nil
}

// EvictIdleDashboards drops dashboards untouched for longer than maxIdle.
// Dashboards with a live stream subscriber are kept.
func (s *JobService) EvictIdleDashboards(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for owner, d := range s.dashboards {
		if d.touched.Before(cutoff) && d.canvas.Subscribers() == 0 {
			delete(s.dashboards, owner)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle dashboards", zap.Int("count", evicted))
	}
	return evicted
}

// --- Helpers ---

func (s *JobService) dashboardFor(ownerID string) *dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dashboards[ownerID]
	if !ok {
		canvas := scene.NewCanvas()
		d = &dashboard{
			canvas:   canvas,
			renderer: scene.NewRenderer(canvas, s.fitPadding, s.logger),
		}
		s.dashboards[ownerID] = d
	}
	d.touched = time.Now()
	return d
}

func (s *JobService) existingDashboard(ownerID string) *dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dashboards[ownerID]
	if d != nil {
		d.touched = time.Now()
	}
	return d
}

func (s *JobService) redraw(ctx context.Context, ownerID string, d *dashboard) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return s.redrawLocked(ctx, ownerID, d)
}

func (s *JobService) redrawLocked(ctx context.Context, ownerID string, d *dashboard) error {
	jobs, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	d.renderer.RenderJobs(jobs)
	d.drawn = true
	return nil
}

func (s *JobService) markReadyLocked(d *dashboard) {
	if d.canvas.Ready() {
		return
	}
	d.canvas.MarkReady()
	d.renderer.SurfaceReady()
}
