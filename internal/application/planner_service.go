package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/domain/session"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/scene"
)

// PlannerConfig holds the planner's tunables.
type PlannerConfig struct {
	Currency       string
	FitPadding     int
	ReferenceLists map[checklist.Category][]string
}

// sessionEntry is one open booking screen: its session, checklist and map.
type sessionEntry struct {
	mu       sync.Mutex
	session  *session.Session
	tracker  *checklist.Tracker
	canvas   *scene.Canvas
	renderer *scene.Renderer
	touched  time.Time
}

// PlannerService orchestrates the booking screen. Each open session owns its
// checklist and its map canvas.
type PlannerService struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	router    route.Router
	geocoder  route.Geocoder
	pricing   jobDomain.PricingStrategy
	repo      jobDomain.Repository
	publisher events.Publisher
	notifier  notify.Notifier
	cfg       PlannerConfig
	logger    *zap.Logger
}

// NewPlannerService creates a new PlannerService.
func NewPlannerService(
	router route.Router,
	geocoder route.Geocoder,
	pricing jobDomain.PricingStrategy,
	repo jobDomain.Repository,
	publisher events.Publisher,
	notifier notify.Notifier,
	cfg PlannerConfig,
	logger *zap.Logger,
) *PlannerService {
	if cfg.ReferenceLists == nil {
		cfg.ReferenceLists = checklist.DefaultReferenceLists
	}
	return &PlannerService{
		sessions:  make(map[string]*sessionEntry),
		router:    router,
		geocoder:  geocoder,
		pricing:   pricing,
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// OpenSession creates an empty session for ownerID.
func (s *PlannerService) OpenSession(ctx context.Context, ownerID string) (*SessionDTO, error) {
	return s.open(ownerID, session.New(ownerID, s.pricing, s.cfg.Currency))
}

// OpenSeededSession creates a session pre-filled with waypoints.
func (s *PlannerService) OpenSeededSession(ctx context.Context, ownerID string, waypoints []route.Waypoint) (*SessionDTO, error) {
	sess, err := session.NewSeeded(ownerID, s.pricing, s.cfg.Currency, waypoints)
	if err != nil {
		return nil, err
	}
	return s.open(ownerID, sess)
}

func (s *PlannerService) open(ownerID string, sess *session.Session) (*SessionDTO, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}

	canvas := scene.NewCanvas()
	e := &sessionEntry{
		session:  sess,
		tracker:  checklist.NewTracker(s.cfg.ReferenceLists),
		canvas:   canvas,
		renderer: scene.NewRenderer(canvas, s.cfg.FitPadding, s.logger),
		touched:  time.Now(),
	}
	e.renderer.RenderSession(sess)

	s.mu.Lock()
	s.sessions[sess.ID()] = e
	s.mu.Unlock()

	s.logger.Info("session opened",
		zap.String("session_id", sess.ID()),
		zap.String("owner_id", ownerID),
		zap.Int("waypoints", len(sess.Waypoints())),
	)
	return toSessionDTO(sess), nil
}

// GetSession returns the session state.
func (s *PlannerService) GetSession(ctx context.Context, ownerID, sessionID string) (*SessionDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return toSessionDTO(e.session), nil
}

// AddWaypoint appends a map click to the session and redraws it.
func (s *PlannerService) AddWaypoint(ctx context.Context, ownerID, sessionID string, pt route.Waypoint) (*SessionDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := e.session.AddWaypoint(pt); err != nil {
		return nil, err
	}
	e.renderer.RenderSession(e.session)
	return toSessionDTO(e.session), nil
}

// ComputeRoute asks the router for a route through the current waypoints.
// The entry is unlocked while the provider is called; a response that was
// superseded by a later mutation is dropped and the current state returned
// with Stale set.
func (s *PlannerService) ComputeRoute(ctx context.Context, ownerID, sessionID string) (*SessionDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	ticket, err := e.session.BeginCompute()
	e.mu.Unlock()
	if err != nil {
		s.notifyError(ctx, ownerID, sessionID, err)
		return nil, err
	}

	geom, routeErr := s.router.Route(ctx, ticket.Waypoints)

	e.mu.Lock()
	defer e.mu.Unlock()

	if routeErr != nil {
		current := e.session.Current(ticket)
		e.session.Fail(ticket)
		if !current {
			s.logger.Debug("stale route failure dropped", zap.String("session_id", sessionID))
			dto := toSessionDTO(e.session)
			dto.Stale = true
			return dto, nil
		}
		s.logger.Warn("route computation failed",
			zap.String("session_id", sessionID),
			zap.Int("waypoints", len(ticket.Waypoints)),
			zap.Error(routeErr),
		)
		s.notifyError(ctx, ownerID, sessionID, routeErr)
		return nil, routeErr
	}

	if !e.session.Apply(ticket, geom) {
		s.logger.Debug("stale route response dropped", zap.String("session_id", sessionID))
		dto := toSessionDTO(e.session)
		dto.Stale = true
		return dto, nil
	}

	e.renderer.RenderSession(e.session)
	s.logger.Info("route computed",
		zap.String("session_id", sessionID),
		zap.Int("distance_m", geom.DistanceMeters),
		zap.Int("duration_s", geom.TravelTimeSeconds),
	)
	return toSessionDTO(e.session), nil
}

// Metrics returns ETA, distance and cost for vehicle.
func (s *PlannerService) Metrics(ctx context.Context, ownerID, sessionID, vehicle string) (*session.Metrics, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	m, err := e.session.DerivedMetrics(jobDomain.VehicleType(strings.ToLower(vehicle)))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ClearSession resets the session, its checklist and its map.
func (s *PlannerService) ClearSession(ctx context.Context, ownerID, sessionID string) (*SessionDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	s.reset(e)
	return toSessionDTO(e.session), nil
}

func (s *PlannerService) reset(e *sessionEntry) {
	e.session.Clear()
	e.tracker.Reset()
	e.renderer.RenderSession(e.session)
	e.renderer.SetTraffic(false)
}

// SetTraffic switches the session map's traffic overlay.
func (s *PlannerService) SetTraffic(ctx context.Context, ownerID, sessionID string, visible bool) (*SessionDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.session.SetTrafficVisible(visible)
	e.renderer.SetTraffic(visible)
	return toSessionDTO(e.session), nil
}

// MapReady marks the session's map initialized and flushes deferred renders.
func (s *PlannerService) MapReady(ctx context.Context, ownerID, sessionID string) (*scene.Document, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.canvas.MarkReady()
	e.renderer.SurfaceReady()
	doc := e.canvas.Document()
	return &doc, nil
}

// Scene exports the session map.
func (s *PlannerService) Scene(ctx context.Context, ownerID, sessionID string) (*scene.Document, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	doc := e.canvas.Document()
	return &doc, nil
}

// Stream returns the session's canvas for live subscription.
func (s *PlannerService) Stream(ctx context.Context, ownerID, sessionID string) (*scene.Canvas, func(), error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	defer e.mu.Unlock()

	ready := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.canvas.MarkReady()
		e.renderer.SurfaceReady()
	}
	return e.canvas, ready, nil
}

// Checklists returns the session's checklist completion.
func (s *PlannerService) Checklists(ctx context.Context, ownerID, sessionID string) (checklist.Completion, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.tracker.Snapshot(), nil
}

// SetChecklistItem selects or deselects one checklist item.
func (s *PlannerService) SetChecklistItem(ctx context.Context, ownerID, sessionID string, category checklist.Category, item string, selected bool) (checklist.CategoryCompletion, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return checklist.CategoryCompletion{}, err
	}
	defer e.mu.Unlock()

	if err := e.tracker.Set(category, item, selected); err != nil {
		return checklist.CategoryCompletion{}, err
	}
	return e.tracker.Snapshot()[category], nil
}

// Book turns the session's route into a stored job, then clears the session.
func (s *PlannerService) Book(ctx context.Context, ownerID, sessionID string, req BookRequest) (*JobDTO, error) {
	e, err := s.lockEntry(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	details, err := parseBookRequest(req)
	if err != nil {
		s.notifyError(ctx, ownerID, sessionID, err)
		return nil, err
	}

	j, err := e.session.ToJob(details, e.tracker.Snapshot())
	if err != nil {
		s.notifyError(ctx, ownerID, sessionID, err)
		return nil, err
	}

	if err := s.repo.Append(ctx, j); err != nil {
		s.logger.Error("failed to store job",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("job booked",
		zap.String("job_id", j.ID()),
		zap.String("owner_id", ownerID),
		zap.String("vehicle_type", string(j.VehicleType())),
		zap.Int64("estimated_cost", j.EstimatedCost()),
	)

	s.publishJobBooked(ctx, j)
	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.BookingSucceeded,
		OwnerID:   ownerID,
		SessionID: sessionID,
		JobID:     j.ID(),
		Message:   "Job booked successfully",
		At:        time.Now().UTC(),
	})

	s.reset(e)

	dto := toJobDTO(j)
	return &dto, nil
}

// Geocode resolves query to a suggested map center.
func (s *PlannerService) Geocode(ctx context.Context, ownerID, query string) (*GeocodeDTO, error) {
	loc, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.notifyGeocodeError(ctx, ownerID, err)
		return nil, err
	}
	return &GeocodeDTO{Query: query, Location: loc}, nil
}

// EvictIdle drops sessions untouched for longer than maxIdle.
func (s *PlannerService) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.touched.Before(cutoff) && !e.session.Busy()
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("idle sessions evicted", zap.Int("count", evicted))
	}
	return evicted
}

// lockEntry finds the owner's session and returns it locked.
func (s *PlannerService) lockEntry(ownerID, sessionID string) (*sessionEntry, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.NewNotFoundError("Session", sessionID)
	}

	e.mu.Lock()
	if e.session.OwnerID() != ownerID {
		e.mu.Unlock()
		return nil, domain.NewNotFoundError("Session", sessionID)
	}
	e.touched = time.Now()
	return e, nil
}

func parseBookRequest(req BookRequest) (jobDomain.BookingDetails, error) {
	d := jobDomain.BookingDetails{
		VehicleType:  jobDomain.VehicleType(strings.ToLower(strings.TrimSpace(req.VehicleType))),
		CustomerName: strings.TrimSpace(req.CustomerName),
		DriverName:   strings.TrimSpace(req.DriverName),
		Notes:        strings.TrimSpace(req.Notes),
	}
	if date := strings.TrimSpace(req.Date); date != "" {
		t, err := time.Parse(jobDomain.DateLayout, date)
		if err != nil {
			return d, domain.NewValidationError("date must be formatted as YYYY-MM-DD")
		}
		d.Date = t
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

func (s *PlannerService) notifyError(ctx context.Context, ownerID, sessionID string, err error) {
	cat, ok := notify.ForError(err)
	if !ok {
		return
	}
	s.notifier.Notify(ctx, notify.Notification{
		Category:  cat,
		Kind:      domain.KindOf(err),
		OwnerID:   ownerID,
		SessionID: sessionID,
		Message:   err.Error(),
		At:        time.Now().UTC(),
	})
}

// notifyGeocodeError reports search-box failures as GeocodeFailed; only an
// unreachable provider keeps its own category.
func (s *PlannerService) notifyGeocodeError(ctx context.Context, ownerID string, err error) {
	cat := notify.GeocodeFailed
	if domain.KindOf(err) == domain.KindProviderUnavailable {
		cat = notify.ProviderUnavailable
	}
	s.notifier.Notify(ctx, notify.Notification{
		Category: cat,
		Kind:     domain.KindOf(err),
		OwnerID:  ownerID,
		Message:  err.Error(),
		At:       time.Now().UTC(),
	})
}

func (s *PlannerService) publishJobBooked(ctx context.Context, j *jobDomain.Job) {
	evt := events.JobBookedEvent{
		JobID:          j.ID(),
		OwnerID:        j.OwnerID(),
		VehicleType:    string(j.VehicleType()),
		Date:           j.Date().Format(jobDomain.DateLayout),
		WaypointCount:  len(j.Waypoints()),
		DistanceMeters: j.Geometry().DistanceMeters,
		ETAMinutes:     j.ETAMinutes(),
		EstimatedCost:  j.EstimatedCost(),
		Currency:       j.Currency(),
		BookedAt:       j.CreatedAt(),
	}
	publishEvent(ctx, s.publisher, s.logger, events.TopicJobEvents, events.JobBooked, j.ID(), evt)
}

func publishEvent(ctx context.Context, publisher events.Publisher, logger *zap.Logger, topic, eventType, key string, data interface{}) {
	cloudEvent, err := events.NewCloudEvent(events.Source, eventType, key, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
