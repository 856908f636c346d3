package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

// JobStore persists scheduled jobs so pending timers survive a restart.
type JobStore struct {
	db        *gorm.DB
	tableName string
}

func NewJobStore(db *gorm.DB, tableName string) (*JobStore, error) {
	if tableName == "" {
		tableName = "scheduled_jobs"
	}
	if err := db.Table(tableName).AutoMigrate(&models.ScheduledJob{}); err != nil {
		return nil, err
	}
	return &JobStore{db: db, tableName: tableName}, nil
}

// Create inserts a newly accepted job in the pending state.
func (s *JobStore) Create(ctx context.Context, job *models.ScheduledJob) error {
	return s.db.WithContext(ctx).Table(s.tableName).Create(job).Error
}

// Get returns one job by id.
func (s *JobStore) Get(ctx context.Context, id string) (*models.ScheduledJob, error) {
	var job models.ScheduledJob
	err := s.db.WithContext(ctx).Table(s.tableName).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListPending returns every job still waiting to fire, for re-arming at startup.
func (s *JobStore) ListPending(ctx context.Context) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := s.db.WithContext(ctx).Table(s.tableName).
		Where("state = ?", models.JobPending).
		Order("fire_at").
		Find(&jobs).Error
	return jobs, err
}

// UpdateState records a lifecycle transition.
func (s *JobStore) UpdateState(ctx context.Context, id string, state models.JobState) error {
	return s.db.WithContext(ctx).Table(s.tableName).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": time.Now(),
		}).Error
}

// Complete marks a job done and records how many deliveries succeeded.
func (s *JobStore) Complete(ctx context.Context, id string, successCount int) error {
	return s.db.WithContext(ctx).Table(s.tableName).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         models.JobCompleted,
			"success_count": successCount,
			"updated_at":    time.Now(),
		}).Error
}
