package repository

import (
	"context"

	"painai/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimesheetHistoryRepository is append-only: there is no update or delete.
type TimesheetHistoryRepository interface {
	Create(ctx context.Context, entry *model.TimesheetHistory) error
	ListByTimesheet(ctx context.Context, timesheetID uuid.UUID) ([]model.TimesheetHistory, error)
}

type timesheetHistoryRepository struct {
	db *gorm.DB
}

func NewTimesheetHistoryRepository(db *gorm.DB) TimesheetHistoryRepository {
	return &timesheetHistoryRepository{db: db}
}

func (r *timesheetHistoryRepository) Create(ctx context.Context, entry *model.TimesheetHistory) error {
	return GetDB(ctx, r.db).Omit("ChangedByUser").Create(entry).Error
}

func (r *timesheetHistoryRepository) ListByTimesheet(ctx context.Context, timesheetID uuid.UUID) ([]model.TimesheetHistory, error) {
	var entries []model.TimesheetHistory
	if err := GetDB(ctx, r.db).
		Preload("ChangedByUser").
		Where("timesheet_id = ?", timesheetID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
