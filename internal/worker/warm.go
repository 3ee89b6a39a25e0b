package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// DirectionsService is the part of routing.Service the warm-up job needs.
type DirectionsService interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
	SupportedModes() []routing.TransportMode
}

// WarmJob prefetches directions for popular trips so the routing cache is hot.
type WarmJob struct {
	config  WarmConfig
	logger  zerolog.Logger
	routing DirectionsService

	metrics *WarmMetrics
}

// WarmMetrics tracks warm-up job statistics across runs.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns     int64
	Successful    int64
	Failed        int64
	RoutesFetched int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config  WarmConfig
	Logger  zerolog.Logger
	Routing DirectionsService
}

// NewWarmJob creates a new warm-up job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Trips) == 0 {
		config.Trips = DefaultTrips()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	return &WarmJob{
		config:  config,
		logger:  cfg.Logger,
		routing: cfg.Routing,
		metrics: &WarmMetrics{},
	}
}

// WarmResult contains the result of a warm-up run.
type WarmResult struct {
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	TotalTasks    int
	Successful    int
	Failed        int
	RoutesFetched int
	Errors        []WarmError
}

// WarmError records a failed trip/mode fetch.
type WarmError struct {
	Trip  string
	Mode  routing.TransportMode
	Error string

	// Retryable is set when a later run may succeed: the provider was down,
	// throttled us, or the task timed out.
	Retryable bool
}

// HasRetryable reports whether any failed task is worth retrying.
func (r *WarmResult) HasRetryable() bool {
	for _, e := range r.Errors {
		if e.Retryable {
			return true
		}
	}
	return false
}

func isRetryable(err error) bool {
	var routingErr *routing.Error
	if errors.As(err, &routingErr) {
		return routingErr.IsRetryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

type warmTask struct {
	trip Trip
	mode routing.TransportMode
}

type taskResult struct {
	task   warmTask
	routes int
	err    error
}

// Run fetches every configured trip in every mode.
// Tasks not started before ctx is cancelled are neither successful nor failed.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	startTime := time.Now()

	modes := j.modes()
	tasks := make([]warmTask, 0, j.config.TotalTasks(len(modes)))
	for _, trip := range j.config.Trips {
		for _, mode := range modes {
			tasks = append(tasks, warmTask{trip: trip, mode: mode})
		}
	}

	result := &WarmResult{
		StartTime:  startTime,
		TotalTasks: len(tasks),
	}

	j.logger.Info().
		Int("trips", len(j.config.Trips)).
		Int("modes", len(modes)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting route warm-up job")

	tasksChan := make(chan warmTask, len(tasks))
	resultsChan := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, tasksChan, resultsChan)
		}()
	}

	for _, t := range tasks {
		tasksChan <- t
	}
	close(tasksChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, WarmError{
				Trip:      tr.task.trip.Name,
				Mode:      tr.task.mode,
				Error:     tr.err.Error(),
				Retryable: isRetryable(tr.err),
			})
			continue
		}
		result.Successful++
		result.RoutesFetched += tr.routes
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("routes", result.RoutesFetched).
		Msg("route warm-up job completed")

	return result
}

func (j *WarmJob) modes() []routing.TransportMode {
	if len(j.config.Modes) > 0 {
		return j.config.Modes
	}
	if j.routing == nil {
		return nil
	}
	return j.routing.SupportedModes()
}

func (j *WarmJob) warmWorker(ctx context.Context, tasks <-chan warmTask, results chan<- taskResult) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warm(ctx, task)
		}
	}
}

func (j *WarmJob) warm(ctx context.Context, task warmTask) taskResult {
	taskCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	resp, err := j.routing.GetDirections(taskCtx, routing.DirectionsRequest{
		Origin:       task.trip.Origin,
		Destination:  task.trip.Destination,
		Mode:         task.mode,
		Alternatives: j.config.Alternatives,
	})
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("trip", task.trip.Name).
			Str("mode", string(task.mode)).
			Msg("failed to warm route")
		return taskResult{task: task, err: err}
	}

	return taskResult{task: task, routes: len(resp.Routes)}
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Successful += int64(result.Successful)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.RoutesFetched += int64(result.RoutesFetched)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		Successful:      j.metrics.Successful,
		Failed:          j.metrics.Failed,
		RoutesFetched:   j.metrics.RoutesFetched,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_warms":  m.Successful,
		"failed_warms":      m.Failed,
		"routes_fetched":    m.RoutesFetched,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
