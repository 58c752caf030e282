package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/persistence/models"
)

// GormRunJournal implements directory.RunJournal using GORM
type GormRunJournal struct {
	db *gorm.DB
}

var _ directory.RunJournal = (*GormRunJournal)(nil)

// NewGormRunJournal creates a run journal on db
func NewGormRunJournal(db *gorm.DB) *GormRunJournal {
	return &GormRunJournal{db: db}
}

// Record stores one applied change
func (r *GormRunJournal) Record(ctx context.Context, record directory.ChangeRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	var model models.ChangeRecordModel
	model.FromDomain(record)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("journal: recording change: %w", err)
	}
	return nil
}

// ListByRun returns the changes of a run in the order they were applied
func (r *GormRunJournal) ListByRun(ctx context.Context, runID uuid.UUID) ([]directory.ChangeRecord, error) {
	var rows []models.ChangeRecordModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("applied_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("journal: listing run %s: %w", runID, err)
	}

	records := make([]directory.ChangeRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

// LatestRuns summarises the most recent runs, newest first
func (r *GormRunJournal) LatestRuns(ctx context.Context, limit int) ([]directory.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var runs []struct {
		RunID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&models.ChangeRecordModel{}).
		Select("run_id").
		Group("run_id").
		Order("MAX(applied_at) DESC").
		Limit(limit).
		Scan(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("journal: listing runs: %w", err)
	}
	if len(runs) == 0 {
		return []directory.RunSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.RunID)
	}
	var rows []models.ChangeRecordModel
	err = r.db.WithContext(ctx).
		Where("run_id IN ?", ids).
		Order("applied_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("journal: loading runs: %w", err)
	}

	byRun := make(map[uuid.UUID]*directory.RunSummary, len(ids))
	for i := range rows {
		row := &rows[i]
		s, ok := byRun[row.RunID]
		if !ok {
			s = &directory.RunSummary{RunID: row.RunID, Task: row.Task, StartedAt: row.AppliedAt}
			byRun[row.RunID] = s
		}
		s.FinishedAt = row.AppliedAt
		s.Total++
		if row.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}

	summaries := make([]directory.RunSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byRun[id]; ok {
			summaries = append(summaries, *s)
		}
	}
	return summaries, nil
}
