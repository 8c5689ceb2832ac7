package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// JobRemover removes a job on behalf of its owner.
type JobRemover interface {
	RemoveJob(ctx context.Context, ownerID, jobID, reason string) error
}

// JobCommandConsumer listens to dispatch commands and applies job cancellations.
type JobCommandConsumer struct {
	consumer *Consumer
	jobs     JobRemover
	logger   *zap.Logger
}

// NewJobCommandConsumer creates a new JobCommandConsumer.
func NewJobCommandConsumer(
	brokers []string,
	groupID string,
	jobs JobRemover,
	logger *zap.Logger,
) *JobCommandConsumer {
	return &JobCommandConsumer{
		consumer: NewConsumer(brokers, groupID, TopicCommands, logger),
		jobs:     jobs,
		logger:   logger,
	}
}

// Start begins consuming commands. This blocks until the context is cancelled.
func (c *JobCommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *JobCommandConsumer) Close() error {
	return c.consumer.Close()
}

// HandleMessage dispatches one command message by CloudEvent type.
func (c *JobCommandConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from command topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case JobCancelRequested:
		return c.handleCancelRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled command type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *JobCommandConsumer) handleCancelRequested(ctx context.Context, cloudEvent CloudEvent) error {
	var evt JobCancelRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse JobCancelRequestedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}
	if evt.JobID == "" || evt.OwnerID == "" {
		c.logger.Warn("cancel request without job or owner id",
			zap.String("event_id", cloudEvent.ID),
		)
		return nil
	}

	c.logger.Info("processing job cancel request",
		zap.String("job_id", evt.JobID),
		zap.String("owner_id", evt.OwnerID),
	)

	if err := c.jobs.RemoveJob(ctx, evt.OwnerID, evt.JobID, evt.Reason); err != nil {
		c.logger.Error("failed to remove job after cancel request",
			zap.String("job_id", evt.JobID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("job removed after cancel request",
		zap.String("job_id", evt.JobID),
	)
	return nil
}
