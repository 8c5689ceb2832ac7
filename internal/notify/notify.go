// Package notify delivers user-facing notifications with stable categories
// that any presentation layer can map to a toast or banner.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/events"
)

// Category is the stable identifier of a notification.
type Category string

const (
	InsufficientWaypoints   Category = "insufficient_waypoints"
	RouteFailed             Category = "route_failed"
	GeocodeFailed           Category = "geocode_failed"
	BookingValidationFailed Category = "booking_validation_failed"
	BookingSucceeded        Category = "booking_succeeded"
	JobDeleted              Category = "job_deleted"
	ProviderUnavailable     Category = "provider_unavailable"
)

// Notification is one message for a dispatcher.
type Notification struct {
	Category  Category    `json:"category"`
	Kind      domain.Kind `json:"kind,omitempty"`
	OwnerID   string      `json:"owner_id"`
	SessionID string      `json:"session_id,omitempty"`
	JobID     string      `json:"job_id,omitempty"`
	Message   string      `json:"message"`
	At        time.Time   `json:"at"`
}

// Notifier delivers notifications. Delivery failures are the notifier's
// concern and never fail the operation that raised them.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// ForError maps a failed operation's error to its notification category.
// Errors without a user-facing category return false.
func ForError(err error) (Category, bool) {
	switch domain.KindOf(err) {
	case domain.KindInsufficientWaypoints:
		return InsufficientWaypoints, true
	case domain.KindRouteNotFound:
		return RouteFailed, true
	case domain.KindGeocodeNotFound:
		return GeocodeFailed, true
	case domain.KindValidationFailed, domain.KindUnknownVehicleType, domain.KindUnknownChecklistItem:
		return BookingValidationFailed, true
	case domain.KindProviderUnavailable:
		return ProviderUnavailable, true
	}
	return "", false
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.logger.Info("notification",
		zap.String("category", string(n.Category)),
		zap.String("owner_id", n.OwnerID),
		zap.String("session_id", n.SessionID),
		zap.String("job_id", n.JobID),
		zap.String("message", n.Message),
	)
}

// KafkaNotifier publishes notifications as CloudEvents.
type KafkaNotifier struct {
	publisher events.Publisher
	logger    *zap.Logger
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(publisher events.Publisher, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, logger: logger}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) {
	ce, err := events.NewCloudEvent(events.Source, events.NotificationRaised, n.OwnerID, events.NotificationEvent{
		Category:  string(n.Category),
		Kind:      string(n.Kind),
		OwnerID:   n.OwnerID,
		SessionID: n.SessionID,
		JobID:     n.JobID,
		Message:   n.Message,
		At:        n.At,
	})
	if err != nil {
		k.logger.Error("failed to create notification event", zap.Error(err))
		return
	}
	if err := k.publisher.PublishEvent(ctx, events.TopicNotifications, ce); err != nil {
		k.logger.Error("failed to publish notification",
			zap.String("category", string(n.Category)),
			zap.Error(err),
		)
	}
}

// Fanout forwards to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, nt := range f {
		nt.Notify(ctx, n)
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.all = append(r.all, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Categories returns the recorded categories in order.
func (r *Recorder) Categories() []Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Category, len(r.all))
	for i, n := range r.all {
		out[i] = n.Category
	}
	return out
}
