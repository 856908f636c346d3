package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
)

// JobStore persists scheduled jobs across restarts.
type JobStore interface {
	Create(ctx context.Context, job *models.ScheduledJob) error
	Get(ctx context.Context, id string) (*models.ScheduledJob, error)
	ListPending(ctx context.Context) ([]models.ScheduledJob, error)
	UpdateState(ctx context.Context, id string, state models.JobState) error
	Complete(ctx context.Context, id string, successCount int) error
}

// Scheduler holds accepted jobs until their fire instant and then hands them
// to the dispatcher exactly once. Waiting is a timer registration, never a
// poll; recipients resolve when the timer fires.
type Scheduler struct {
	store      JobStore
	dispatcher *Dispatcher
	registry   TokenLister
	metrics    *metrics.Metrics
	logger     *slog.Logger
	zone       *time.Location
	now        func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
	states map[string]models.JobState
	wg     sync.WaitGroup
}

func NewScheduler(store JobStore, dispatcher *Dispatcher, registry TokenLister, m *metrics.Metrics, logger *slog.Logger, zone *time.Location) *Scheduler {
	if zone == nil {
		zone = time.UTC
	}
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		metrics:    m,
		logger:     logger,
		zone:       zone,
		now:        time.Now,
		timers:     make(map[string]*time.Timer),
		states:     make(map[string]models.JobState),
	}
}

// ParseFireAt combines a calendar date ("2006-01-02") and a local time of day
// ("15:04" or "15:04:05") in the scheduler's fixed UTC offset. Any parse
// failure is ErrInvalidScheduleTime, surfaced synchronously at acceptance.
func (s *Scheduler) ParseFireAt(date, clock string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, s.zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q %q", models.ErrInvalidScheduleTime, date, clock)
}

// Schedule accepts a deferred job. fireAt must be strictly in the future;
// anything else is rejected before the job is persisted or any registry read
// happens. Once pending, the job always fires unless cancelled.
func (s *Scheduler) Schedule(ctx context.Context, payload models.NotificationPayload, mode models.RecipientMode, recipient string, fireAt time.Time) (*models.ScheduledJob, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if mode == models.ModeSingle && recipient == "" {
		return nil, fmt.Errorf("schedule: single-recipient job needs a token")
	}
	if !fireAt.After(s.now()) {
		return nil, fmt.Errorf("%w: %s is not in the future", models.ErrInvalidScheduleTime, fireAt.Format(time.RFC3339))
	}

	job := &models.ScheduledJob{
		ID:        uuid.NewString(),
		Title:     payload.Title,
		Body:      payload.Body,
		Mode:      mode,
		Recipient: recipient,
		FireAt:    fireAt,
		State:     models.JobPending,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	s.arm(job.ID, fireAt)
	s.metrics.IncScheduled()
	s.logger.Info("job scheduled",
		slog.String("job_id", job.ID),
		slog.String("mode", string(job.Mode)),
		slog.Time("fire_at", fireAt))
	return job, nil
}

// Cancel withdraws a pending job. The pending-to-cancelled transition is
// decided under the scheduler mutex so a cancel racing the timer resolves to
// exactly one of the two.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	state, ok := s.states[id]
	if !ok {
		s.mu.Unlock()
		if _, err := s.store.Get(ctx, id); err != nil {
			return err
		}
		return models.ErrJobAlreadyFired
	}
	if state != models.JobPending {
		s.mu.Unlock()
		return models.ErrJobAlreadyFired
	}
	delete(s.states, id)
	if timer := s.timers[id]; timer != nil {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if err := s.store.UpdateState(ctx, id, models.JobCancelled); err != nil {
		return err
	}
	s.metrics.IncCancelled()
	s.logger.Info("job cancelled", slog.String("job_id", id))
	return nil
}

// Get returns the persisted job state.
func (s *Scheduler) Get(ctx context.Context, id string) (*models.ScheduledJob, error) {
	return s.store.Get(ctx, id)
}

// Recover re-arms every persisted pending job after a restart. Jobs whose
// fire instant passed during downtime fire immediately.
func (s *Scheduler) Recover(ctx context.Context) error {
	jobs, err := s.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	for _, job := range jobs {
		s.arm(job.ID, job.FireAt)
	}
	if len(jobs) > 0 {
		s.logger.Info("recovered pending jobs", slog.Int("count", len(jobs)))
	}
	return nil
}

// Stop prevents pending timers from firing and waits for in-flight jobs.
// Pending jobs stay persisted and re-arm on the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) arm(id string, fireAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = models.JobPending
	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.fire(id)
	})
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	if s.states[id] != models.JobPending {
		s.mu.Unlock()
		return
	}
	s.states[id] = models.JobFired
	delete(s.timers, id)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	// Provider and store timeouts bound every call made from here.
	ctx := context.Background()

	if err := s.store.UpdateState(ctx, id, models.JobFired); err != nil {
		s.logger.Error("failed to mark job fired", slog.String("job_id", id), slog.Any("error", err))
	}

	job, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("fired job vanished from store", slog.String("job_id", id), slog.Any("error", err))
		return
	}

	recipients, err := s.source(job).Resolve(ctx)
	if err != nil {
		s.logger.Error("recipient resolution failed",
			slog.String("job_id", id),
			slog.Any("error", err))
		s.finish(ctx, id, models.JobFailed, 0)
		return
	}

	result := s.dispatcher.Dispatch(ctx, job.Payload(), recipients)
	s.logger.Info("job fired",
		slog.String("job_id", id),
		slog.Int("recipients", len(result.Outcomes)),
		slog.Int("delivered", result.SuccessCount))
	s.finish(ctx, id, models.JobCompleted, result.SuccessCount)
}

func (s *Scheduler) source(job *models.ScheduledJob) RecipientSource {
	if job.Mode == models.ModeSingle {
		return SingleRecipient(job.Recipient)
	}
	return RegistryMembers(s.registry)
}

func (s *Scheduler) finish(ctx context.Context, id string, state models.JobState, successCount int) {
	// Terminal jobs leave the in-memory map; the store stays authoritative for
	// later lookups, so the map only ever holds pending and in-flight jobs.
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()

	var err error
	if state == models.JobCompleted {
		err = s.store.Complete(ctx, id, successCount)
	} else {
		err = s.store.UpdateState(ctx, id, state)
	}
	if err != nil {
		s.logger.Error("failed to persist job result",
			slog.String("job_id", id),
			slog.String("state", string(state)),
			slog.Any("error", err))
	}
}
