package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// Job types carried in the job_type field of worker messages.
const (
	JobRouteWarmup = "route_warmup"
	JobHealthCheck = "health_check"
)

var (
	// ErrMalformedMessage indicates a message body that is not a job message.
	ErrMalformedMessage = errors.New("malformed job message")
	// ErrUnknownJobType indicates a job type this worker does not handle.
	ErrUnknownJobType = errors.New("unknown job type")
)

// JobMessage represents a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
	// Modes optionally restricts a warm-up run to the given transport modes.
	Modes []string `json:"modes,omitempty"`
}

// Dispatcher runs the job named by a message.
type Dispatcher struct {
	warmJob *WarmJob
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given warm-up job.
func NewDispatcher(warmJob *WarmJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{warmJob: warmJob, logger: logger}
}

// Handle decodes data as a JobMessage and runs it.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobRouteWarmup:
		return d.handleRouteWarmup(ctx, msg)
	case JobHealthCheck:
		return d.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (d *Dispatcher) handleRouteWarmup(ctx context.Context, msg JobMessage) error {
	job := d.warmJob
	if len(msg.Modes) > 0 {
		config := job.config
		config.Modes = make([]routing.TransportMode, 0, len(msg.Modes))
		for _, m := range msg.Modes {
			config.Modes = append(config.Modes, routing.ParseTransportMode(m))
		}
		job = NewWarmJob(WarmJobConfig{Config: config, Logger: d.logger, Routing: job.routing})
	}

	result := job.Run(ctx)

	// Consider it successful if more than half succeeded. Redelivery cannot
	// fix trips the provider has no route for, so those are only logged.
	if result.Failed > result.Successful {
		if !result.HasRetryable() {
			d.logger.Warn().
				Int("failed", result.Failed).
				Int("total", result.TotalTasks).
				Msg("warm-up failures are permanent, not retrying")
			return nil
		}
		return fmt.Errorf("too many warm-up failures: %d/%d", result.Failed, result.TotalTasks)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	// A single car trip is enough to verify provider connectivity.
	healthCheckJob := NewWarmJob(WarmJobConfig{
		Config: WarmConfig{
			Trips:       d.warmJob.config.Trips[:1],
			Modes:       []routing.TransportMode{routing.ModeCar},
			Concurrency: 1,
			Timeout:     10 * time.Second,
		},
		Logger:  d.logger,
		Routing: d.warmJob.routing,
	})

	result := healthCheckJob.Run(ctx)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Warm-up runs are slow; keep few in flight and extend leases generously.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 2
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.dispatcher.Handle(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrUnknownJobType):
		logger.Warn().Err(err).Msg("ignoring message")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	case errors.Is(err, ErrMalformedMessage):
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
