package repository

import (
	"context"
	"fmt"

	"painai/internal/model"

	"gorm.io/gorm"
)

const sumColumns = `
	COALESCE(SUM(t.hours_worked), 0) AS regular_hours,
	COALESCE(SUM(t.overtime_hours), 0) AS overtime_hours,
	COALESCE(SUM(CASE WHEN t.billable THEN t.hours_worked + t.overtime_hours ELSE 0 END), 0) AS billable_hours,
	COALESCE(SUM(CASE WHEN t.billable AND t.hourly_rate IS NOT NULL
		THEN (t.hours_worked + t.overtime_hours) * t.hourly_rate ELSE 0 END), 0) AS billable_amount,
	COUNT(t.id) AS entry_count`

type ReportRepository interface {
	SumByProject(ctx context.Context, filter model.ReportFilter) ([]model.ProjectHours, error)
	SumByUser(ctx context.Context, filter model.ReportFilter) ([]model.UserHours, error)
	DailyHours(ctx context.Context, filter model.ReportFilter) ([]model.DailyHours, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) base(ctx context.Context, filter model.ReportFilter) *gorm.DB {
	query := GetDB(ctx, r.db).Table("timesheets t").
		Where("t.deleted_at IS NULL").
		Where("t.work_date BETWEEN ? AND ?", filter.From.Format("2006-01-02"), filter.To.Format("2006-01-02"))
	if len(filter.Statuses) > 0 {
		query = query.Where("t.status IN ?", filter.Statuses)
	}
	if filter.ProjectID != "" {
		query = query.Where("t.project_id = ?", filter.ProjectID)
	}
	if filter.UserID != "" {
		query = query.Where("t.user_id = ?", filter.UserID)
	}
	return query
}

func (r *reportRepository) SumByProject(ctx context.Context, filter model.ReportFilter) ([]model.ProjectHours, error) {
	var rows []model.ProjectHours
	if err := r.base(ctx, filter).
		Select(`COALESCE(CAST(p.id AS TEXT), '') AS project_id,
			COALESCE(p.code, '') AS project_code,
			COALESCE(p.name, '') AS project_name,` + sumColumns).
		Joins("LEFT JOIN projects p ON p.id = t.project_id").
		Group("p.id, p.code, p.name").
		Order("project_code ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum hours by project: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) SumByUser(ctx context.Context, filter model.ReportFilter) ([]model.UserHours, error) {
	var rows []model.UserHours
	if err := r.base(ctx, filter).
		Select(`CAST(u.id AS TEXT) AS user_id, u.username, u.full_name, u.department,` + sumColumns).
		Joins("JOIN users u ON u.id = t.user_id").
		Group("u.id, u.username, u.full_name, u.department").
		Order("u.username ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum hours by user: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) DailyHours(ctx context.Context, filter model.ReportFilter) ([]model.DailyHours, error) {
	var rows []model.DailyHours
	if err := r.base(ctx, filter).
		Select(`t.work_date,
			COALESCE(SUM(t.hours_worked), 0) AS regular_hours,
			COALESCE(SUM(t.overtime_hours), 0) AS overtime_hours`).
		Group("t.work_date").
		Order("t.work_date ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query daily hours: %w", err)
	}
	return rows, nil
}
