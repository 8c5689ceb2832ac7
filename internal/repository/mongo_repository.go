package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

const jobsCollection = "jobs"

// NewMongoClient connects to uri with a bounded connect timeout.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

type geometryDocument struct {
	Coordinates       []route.Waypoint `bson:"coordinates"`
	TravelTimeSeconds int              `bson:"travel_time_seconds"`
	DistanceMeters    int              `bson:"distance_meters"`
}

type completionDocument struct {
	Selected []string `bson:"selected"`
	Total    int      `bson:"total"`
	Percent  int      `bson:"percent"`
}

type jobDocument struct {
	ID            string                        `bson:"_id"`
	OwnerID       string                        `bson:"owner_id"`
	VehicleType   string                        `bson:"vehicle_type"`
	Date          time.Time                     `bson:"date"`
	Waypoints     []route.Waypoint              `bson:"waypoints"`
	Geometry      geometryDocument              `bson:"geometry"`
	ETAMinutes    int                           `bson:"eta_minutes"`
	EstimatedCost int64                         `bson:"estimated_cost"`
	Currency      string                        `bson:"currency"`
	Status        string                        `bson:"status"`
	Checklist     map[string]completionDocument `bson:"checklist,omitempty"`
	CustomerName  string                        `bson:"customer_name,omitempty"`
	DriverName    string                        `bson:"driver_name,omitempty"`
	Notes         string                        `bson:"notes,omitempty"`
	CreatedAt     time.Time                     `bson:"created_at"`
	UpdatedAt     time.Time                     `bson:"updated_at"`
}

// MongoJobRepository stores jobs in a MongoDB collection.
type MongoJobRepository struct {
	col *mongo.Collection
}

// NewMongoJobRepository creates a MongoJobRepository on db.
func NewMongoJobRepository(db *mongo.Database) *MongoJobRepository {
	return &MongoJobRepository{col: db.Collection(jobsCollection)}
}

// EnsureIndexes creates the owner listing and status indexes.
func (r *MongoJobRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}
	return nil
}

func (r *MongoJobRepository) Append(ctx context.Context, j *jobDomain.Job) error {
	if _, err := r.col.InsertOne(ctx, toJobDocument(j)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewConflictError("job " + j.ID() + " already exists")
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (r *MongoJobRepository) List(ctx context.Context, ownerID string) ([]*jobDomain.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner jobs: %w", err)
	}
	return decodeJobs(ctx, cur)
}

func (r *MongoJobRepository) FindByID(ctx context.Context, ownerID, jobID string) (*jobDomain.Job, error) {
	var doc jobDocument
	err := r.col.FindOne(ctx, bson.M{"_id": jobID, "owner_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("Job", jobID)
		}
		return nil, fmt.Errorf("failed to find job by ID: %w", err)
	}
	return toDomainJobFromDocument(&doc)
}

func (r *MongoJobRepository) Remove(ctx context.Context, ownerID, jobID string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": jobID, "owner_id": ownerID}); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (r *MongoJobRepository) ListAll(ctx context.Context, page, limit int) ([]*jobDomain.Job, int64, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs, err := decodeJobs(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *MongoJobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer cur.Close(ctx)

	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode status count: %w", err)
		}
		counts[row.Status] = row.Count
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	return counts, nil
}

func decodeJobs(ctx context.Context, cur *mongo.Cursor) ([]*jobDomain.Job, error) {
	defer cur.Close(ctx)

	jobs := make([]*jobDomain.Job, 0)
	for cur.Next(ctx) {
		var doc jobDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		j, err := toDomainJobFromDocument(&doc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return jobs, nil
}

func toJobDocument(j *jobDomain.Job) *jobDocument {
	g := j.Geometry()
	doc := &jobDocument{
		ID:          j.ID(),
		OwnerID:     j.OwnerID(),
		VehicleType: string(j.VehicleType()),
		Date:        j.Date(),
		Waypoints:   j.Waypoints(),
		Geometry: geometryDocument{
			Coordinates:       g.Coordinates,
			TravelTimeSeconds: g.TravelTimeSeconds,
			DistanceMeters:    g.DistanceMeters,
		},
		ETAMinutes:    j.ETAMinutes(),
		EstimatedCost: j.EstimatedCost(),
		Currency:      j.Currency(),
		Status:        string(j.Status()),
		CustomerName:  j.CustomerName(),
		DriverName:    j.DriverName(),
		Notes:         j.Notes(),
		CreatedAt:     j.CreatedAt(),
		UpdatedAt:     j.UpdatedAt(),
	}
	if c := j.Checklist(); c != nil {
		doc.Checklist = make(map[string]completionDocument, len(c))
		for cat, cc := range c {
			doc.Checklist[string(cat)] = completionDocument(cc)
		}
	}
	return doc
}

func toDomainJobFromDocument(d *jobDocument) (*jobDomain.Job, error) {
	status, err := jobDomain.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}

	var completion checklist.Completion
	if d.Checklist != nil {
		completion = make(checklist.Completion, len(d.Checklist))
		for cat, cc := range d.Checklist {
			completion[checklist.Category(cat)] = checklist.CategoryCompletion(cc)
		}
	}

	return jobDomain.Reconstruct(
		d.ID,
		d.OwnerID,
		jobDomain.VehicleType(d.VehicleType),
		d.Date,
		d.Waypoints,
		route.Geometry{
			Coordinates:       d.Geometry.Coordinates,
			TravelTimeSeconds: d.Geometry.TravelTimeSeconds,
			DistanceMeters:    d.Geometry.DistanceMeters,
		},
		d.ETAMinutes,
		d.EstimatedCost,
		d.Currency,
		status,
		completion,
		d.CustomerName,
		d.DriverName,
		d.Notes,
		d.CreatedAt,
		d.UpdatedAt,
	), nil
}
