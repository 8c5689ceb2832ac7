package job

import "context"

// Repository is the owner-partitioned job store. Implementations never
// return or delete a job belonging to a different owner.
type Repository interface {
	// Append persists a new job.
	Append(ctx context.Context, job *Job) error

	// List returns the owner's jobs in insertion order.
	List(ctx context.Context, ownerID string) ([]*Job, error)

	// FindByID retrieves one of the owner's jobs.
	FindByID(ctx context.Context, ownerID, jobID string) (*Job, error)

	// Remove deletes one of the owner's jobs. Removing a missing job is not an error.
	Remove(ctx context.Context, ownerID, jobID string) error

	// ListAll returns every owner's jobs, newest first, with the total count (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Job, int64, error)

	// CountByStatus returns job counts grouped by status across all owners (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
