package repository

import (
	"context"
	"sync"

	"github.com/tripexl/service-dispatch/internal/domain"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
)

// MemoryJobRepository keeps jobs in process memory, in insertion order.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs []*jobDomain.Job
}

// NewMemoryJobRepository creates an empty MemoryJobRepository.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{}
}

func (r *MemoryJobRepository) Append(_ context.Context, j *jobDomain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.ID() == j.ID() {
			return domain.NewConflictError("job " + j.ID() + " already exists")
		}
	}
	r.jobs = append(r.jobs, j)
	return nil
}

func (r *MemoryJobRepository) List(_ context.Context, ownerID string) ([]*jobDomain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*jobDomain.Job, 0)
	for _, j := range r.jobs {
		if j.OwnerID() == ownerID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *MemoryJobRepository) FindByID(_ context.Context, ownerID, jobID string) (*jobDomain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.ID() == jobID && j.OwnerID() == ownerID {
			return j, nil
		}
	}
	return nil, domain.NewNotFoundError("Job", jobID)
}

func (r *MemoryJobRepository) Remove(_ context.Context, ownerID, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if j.ID() == jobID && j.OwnerID() == ownerID {
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(r.jobs); i++ {
		r.jobs[i] = nil
	}
	r.jobs = kept
	return nil
}

func (r *MemoryJobRepository) ListAll(_ context.Context, page, limit int) ([]*jobDomain.Job, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.jobs)

	start := (page - 1) * limit
	if start < 0 || start >= total || limit <= 0 {
		return []*jobDomain.Job{}, int64(total), nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]*jobDomain.Job, 0, end-start)
	for i := total - 1 - start; i >= total-end; i-- {
		out = append(out, r.jobs[i])
	}
	return out, int64(total), nil
}

func (r *MemoryJobRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int64)
	for _, j := range r.jobs {
		counts[string(j.Status())]++
	}
	return counts, nil
}
