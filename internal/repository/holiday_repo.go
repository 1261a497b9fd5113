package repository

import (
	"context"
	"time"

	"painai/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	Update(ctx context.Context, holiday *model.Holiday) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error)
	FindByDate(ctx context.Context, date time.Time) (*model.Holiday, error)
	ListByYear(ctx context.Context, year int) ([]model.Holiday, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error)
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	return GetDB(ctx, r.db).Create(holiday).Error
}

func (r *holidayRepository) Update(ctx context.Context, holiday *model.Holiday) error {
	return GetDB(ctx, r.db).Save(holiday).Error
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Holiday{}).Error
}

func (r *holidayRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error) {
	var holiday model.Holiday
	if err := GetDB(ctx, r.db).First(&holiday, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) FindByDate(ctx context.Context, date time.Time) (*model.Holiday, error) {
	var holiday model.Holiday
	if err := GetDB(ctx, r.db).First(&holiday, "date = ?", date.Format("2006-01-02")).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) ListByYear(ctx context.Context, year int) ([]model.Holiday, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return r.ListBetween(ctx, from, to)
}

func (r *holidayRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	var holidays []model.Holiday
	if err := GetDB(ctx, r.db).
		Where("date BETWEEN ? AND ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("date ASC").
		Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}
