package repository

import (
	"context"
	"time"

	"painai/internal/model"
	"painai/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimesheetFilter struct {
	UserID        *uuid.UUID
	ExcludeUserID *uuid.UUID
	ProjectID     *uuid.UUID
	Status        string
	From          *time.Time
	To            *time.Time
	pagination.Params
}

// DuplicateKey identifies a timesheet for the uniqueness rule. A nil ProjectID matches entries without a project.
type DuplicateKey struct {
	UserID      uuid.UUID
	ProjectID   *uuid.UUID
	WorkDate    time.Time
	WorkType    string
	SubWorkType string
}

// StatusChange is applied by UpdateStatus together with the new status.
type StatusChange struct {
	Status          string
	SubmittedAt     *time.Time
	ApprovedBy      *uuid.UUID
	DecidedAt       *time.Time
	RejectionReason string
}

type TimesheetRepository interface {
	Create(ctx context.Context, ts *model.Timesheet) error
	Update(ctx context.Context, ts *model.Timesheet) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Timesheet, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Timesheet, error)
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Timesheet, error)
	List(ctx context.Context, filter TimesheetFilter) ([]model.Timesheet, int64, error)
	ListDraftIDs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)
	ExistsDuplicate(ctx context.Context, key DuplicateKey, excludeID *uuid.UUID) (bool, error)
	// UpdateStatus changes the status only if it still equals expected and returns the rows affected.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected string, change StatusChange) (int64, error)
}

type timesheetRepository struct {
	db *gorm.DB
}

func NewTimesheetRepository(db *gorm.DB) TimesheetRepository {
	return &timesheetRepository{db: db}
}

func (r *timesheetRepository) Create(ctx context.Context, ts *model.Timesheet) error {
	return GetDB(ctx, r.db).Omit("User", "Project", "Approver").Create(ts).Error
}

func (r *timesheetRepository) Update(ctx context.Context, ts *model.Timesheet) error {
	return GetDB(ctx, r.db).Omit("User", "Project", "Approver").Save(ts).Error
}

func (r *timesheetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Timesheet{}).Error
}

func (r *timesheetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Timesheet, error) {
	var ts model.Timesheet
	if err := GetDB(ctx, r.db).
		Preload("User").
		Preload("Project").
		Preload("Approver").
		First(&ts, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *timesheetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Timesheet, error) {
	var ts model.Timesheet
	if err := forUpdate(GetDB(ctx, r.db)).First(&ts, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// FindByIDUnscoped also returns soft-deleted rows, so their history stays reachable.
func (r *timesheetRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Timesheet, error) {
	var ts model.Timesheet
	if err := GetDB(ctx, r.db).Unscoped().First(&ts, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *timesheetRepository) applyFilter(query *gorm.DB, filter TimesheetFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ExcludeUserID != nil {
		query = query.Where("user_id <> ?", *filter.ExcludeUserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("work_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("work_date <= ?", *filter.To)
	}
	return query
}

func (r *timesheetRepository) List(ctx context.Context, filter TimesheetFilter) ([]model.Timesheet, int64, error) {
	var timesheets []model.Timesheet
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.applyFilter(db.Model(&model.Timesheet{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(db.Preload("User").Preload("Project").Preload("Approver"), filter).
		Order("work_date DESC, created_at DESC")
	if err := query.Scopes(pagination.Paginate(filter.Params)).Find(&timesheets).Error; err != nil {
		return nil, 0, err
	}

	return timesheets, total, nil
}

func (r *timesheetRepository) ListDraftIDs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.Timesheet{}).
		Where("user_id = ? AND status = ? AND work_date BETWEEN ? AND ?", userID, model.TimesheetStatusDraft, from, to).
		Order("work_date ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *timesheetRepository) ExistsDuplicate(ctx context.Context, key DuplicateKey, excludeID *uuid.UUID) (bool, error) {
	query := GetDB(ctx, r.db).Model(&model.Timesheet{}).
		Where("user_id = ? AND work_date = ? AND work_type = ? AND sub_work_type = ?",
			key.UserID, key.WorkDate, key.WorkType, key.SubWorkType)

	if key.ProjectID != nil {
		query = query.Where("project_id = ?", *key.ProjectID)
	} else {
		query = query.Where("project_id IS NULL")
	}
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *timesheetRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected string, change StatusChange) (int64, error) {
	updates := map[string]interface{}{
		"status":     change.Status,
		"updated_at": time.Now(),
	}
	if change.SubmittedAt != nil {
		updates["submitted_at"] = *change.SubmittedAt
	}
	if change.ApprovedBy != nil {
		updates["approved_by"] = *change.ApprovedBy
	}
	if change.DecidedAt != nil {
		updates["decided_at"] = *change.DecidedAt
	}
	if change.RejectionReason != "" {
		updates["rejection_reason"] = change.RejectionReason
	}

	res := GetDB(ctx, r.db).Model(&model.Timesheet{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return res.RowsAffected, res.Error
}
