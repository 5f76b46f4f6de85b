package results

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"gorm.io/gorm"
)

// maxListLimit caps a list query whose caller passed no limit.
const maxListLimit = 1000

// SQLStore implements the Store interface using GORM.
type SQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewSQLStore creates a new GORM-backed results store.
func NewSQLStore(db *gorm.DB, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: log,
	}
}

// Create persists a new run result.
func (s *SQLStore) Create(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		s.logger.Error(ctx, "failed to create run result", map[string]interface{}{
			"error":     err.Error(),
			"sweep_id":  r.SweepID.String(),
			"hw_config": r.HWConfig,
			"workload":  r.Workload,
			"run":       r.RunIndex,
		})
		return err
	}

	s.logger.Debug(ctx, "run result stored", map[string]interface{}{
		"result_id": r.ID.String(),
		"sweep_id":  r.SweepID.String(),
	})
	return nil
}

// GetByID retrieves a run result by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error(ctx, "failed to get run result by ID", map[string]interface{}{
			"error":     err.Error(),
			"result_id": id.String(),
		})
		return nil, err
	}

	return &r, nil
}

// Update applies setters to a stored run result.
func (s *SQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(r); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		s.logger.Error(ctx, "failed to update run result", map[string]interface{}{
			"error":     err.Error(),
			"result_id": id.String(),
		})
		return err
	}

	return nil
}

// ListBySweep returns a page of a sweep's results in run order.
func (s *SQLStore) ListBySweep(ctx context.Context, sweepID uuid.UUID, limit, offset int) ([]*Record, error) {
	var records []*Record
	err := s.db.WithContext(ctx).
		Where("sweep_id = ?", sweepID).
		Order("created_at ASC").
		Order("hw_config ASC").
		Order("workload ASC").
		Order("run_index ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list run results by sweep", map[string]interface{}{
			"error":    err.Error(),
			"sweep_id": sweepID.String(),
			"limit":    limit,
			"offset":   offset,
		})
		return nil, err
	}

	return records, nil
}

// CountBySweep returns the number of results stored for a sweep.
func (s *SQLStore) CountBySweep(ctx context.Context, sweepID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("sweep_id = ?", sweepID).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count run results by sweep", map[string]interface{}{
			"error":    err.Error(),
			"sweep_id": sweepID.String(),
		})
		return 0, err
	}

	return int(count), nil
}

// DeleteBySweep removes every result of a sweep and returns how many were
// removed.
func (s *SQLStore) DeleteBySweep(ctx context.Context, sweepID uuid.UUID) (int, error) {
	res := s.db.WithContext(ctx).
		Where("sweep_id = ?", sweepID).
		Delete(&Record{})

	if res.Error != nil {
		s.logger.Error(ctx, "failed to delete run results by sweep", map[string]interface{}{
			"error":    res.Error.Error(),
			"sweep_id": sweepID.String(),
		})
		return 0, res.Error
	}

	s.logger.Info(ctx, "run results deleted", map[string]interface{}{
		"sweep_id": sweepID.String(),
		"rows":     res.RowsAffected,
	})
	return int(res.RowsAffected), nil
}

// sweepAggregate is one row of the ListSweeps query.
type sweepAggregate struct {
	SweepID   uuid.UUID
	RowCount  int
	FirstSeen sqlTime
	LastSeen  sqlTime
}

// ListSweeps summarises stored sweeps, most recent first.
func (s *SQLStore) ListSweeps(ctx context.Context, limit, offset int) ([]SweepSummary, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var aggregates []sweepAggregate
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Select("sweep_id, COUNT(*) AS row_count, MIN(created_at) AS first_seen, MAX(created_at) AS last_seen").
		Group("sweep_id").
		Order("last_seen DESC").
		Order("sweep_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&aggregates).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list sweeps", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	summaries := make([]SweepSummary, 0, len(aggregates))
	for _, a := range aggregates {
		summaries = append(summaries, SweepSummary{
			SweepID:   a.SweepID,
			Rows:      a.RowCount,
			FirstSeen: a.FirstSeen.Time,
			LastSeen:  a.LastSeen.Time,
		})
	}
	return summaries, nil
}

// CountSweeps returns the number of distinct sweeps with stored results.
func (s *SQLStore) CountSweeps(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Distinct("sweep_id").
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count sweeps", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	return int(count), nil
}
