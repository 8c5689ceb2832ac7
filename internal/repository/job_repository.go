package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

// JobModel is the GORM model for the jobs table.
type JobModel struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	OwnerID       string          `gorm:"index;not null;size:128"`
	VehicleType   string          `gorm:"not null;size:20"`
	Date          time.Time       `gorm:"type:date;not null"`
	Waypoints     json.RawMessage `gorm:"type:jsonb;not null"`
	Geometry      json.RawMessage `gorm:"type:jsonb;not null"`
	ETAMinutes    int             `gorm:"not null;default:0"`
	EstimatedCost int64           `gorm:"not null;default:0"`
	Currency      string          `gorm:"not null;size:3;default:'INR'"`
	Status        string          `gorm:"not null;size:30;index"`
	Checklist     datatypes.JSON  `gorm:"type:jsonb"`
	CustomerName  string          `gorm:"size:200"`
	DriverName    string          `gorm:"size:200"`
	Notes         string          `gorm:"size:1000"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (JobModel) TableName() string {
	return "jobs"
}

// GormJobRepository is the GORM-based implementation of job.Repository.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// Append persists a new job.
func (r *GormJobRepository) Append(ctx context.Context, j *jobDomain.Job) error {
	model, err := toJobModel(j)
	if err != nil {
		return fmt.Errorf("failed to convert job to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError(fmt.Sprintf("job %s already exists", j.ID()))
		}
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// List retrieves the owner's jobs in insertion order. Ids are UUIDv7, so they
// break ties between jobs created in the same instant.
func (r *GormJobRepository) List(ctx context.Context, ownerID string) ([]*jobDomain.Job, error) {
	var models []JobModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list owner jobs: %w", err)
	}
	return toDomainJobs(models)
}

// FindByID retrieves one of the owner's jobs.
func (r *GormJobRepository) FindByID(ctx context.Context, ownerID, jobID string) (*jobDomain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.NewNotFoundError("Job", jobID)
	}

	var model JobModel
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", jobID, ownerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Job", jobID)
		}
		return nil, fmt.Errorf("failed to find job by ID: %w", err)
	}
	return toDomainJob(&model)
}

// Remove deletes one of the owner's jobs. Missing jobs are ignored.
func (r *GormJobRepository) Remove(ctx context.Context, ownerID, jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil
	}

	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", jobID, ownerID).
		Delete(&JobModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ListAll retrieves all jobs with pagination (admin).
func (r *GormJobRepository) ListAll(ctx context.Context, page, limit int) ([]*jobDomain.Job, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&JobModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	var models []JobModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs, err := toDomainJobs(models)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// CountByStatus returns job counts grouped by status (admin).
func (r *GormJobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&JobModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toJobModel(j *jobDomain.Job) (*JobModel, error) {
	waypointsJSON, err := json.Marshal(j.Waypoints())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal waypoints: %w", err)
	}

	geometryJSON, err := json.Marshal(j.Geometry())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}

	var checklistJSON datatypes.JSON
	if j.Checklist() != nil {
		data, err := json.Marshal(j.Checklist())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal checklist: %w", err)
		}
		checklistJSON = data
	}

	return &JobModel{
		ID:            j.ID(),
		OwnerID:       j.OwnerID(),
		VehicleType:   string(j.VehicleType()),
		Date:          j.Date(),
		Waypoints:     waypointsJSON,
		Geometry:      geometryJSON,
		ETAMinutes:    j.ETAMinutes(),
		EstimatedCost: j.EstimatedCost(),
		Currency:      j.Currency(),
		Status:        string(j.Status()),
		Checklist:     checklistJSON,
		CustomerName:  j.CustomerName(),
		DriverName:    j.DriverName(),
		Notes:         j.Notes(),
		CreatedAt:     j.CreatedAt(),
		UpdatedAt:     j.UpdatedAt(),
	}, nil
}

func toDomainJob(m *JobModel) (*jobDomain.Job, error) {
	var waypoints []route.Waypoint
	if err := json.Unmarshal(m.Waypoints, &waypoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waypoints: %w", err)
	}

	var geometry route.Geometry
	if err := json.Unmarshal(m.Geometry, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}

	var completion checklist.Completion
	if len(m.Checklist) > 0 {
		if err := json.Unmarshal(m.Checklist, &completion); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checklist: %w", err)
		}
	}

	status, err := jobDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return jobDomain.Reconstruct(
		m.ID,
		m.OwnerID,
		jobDomain.VehicleType(m.VehicleType),
		m.Date,
		waypoints,
		geometry,
		m.ETAMinutes,
		m.EstimatedCost,
		m.Currency,
		status,
		completion,
		m.CustomerName,
		m.DriverName,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainJobs(models []JobModel) ([]*jobDomain.Job, error) {
	jobs := make([]*jobDomain.Job, len(models))
	for i := range models {
		j, err := toDomainJob(&models[i])
		if err != nil {
			return nil, err
		}
		jobs[i] = j
	}
	return jobs, nil
}
