package repository

import (
	"context"

	"painai/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkTypeRepository interface {
	ListTree(ctx context.Context) ([]model.WorkType, error)
	FindByCode(ctx context.Context, code string) (*model.WorkType, error)
	Count(ctx context.Context) (int64, error)

	CreateWorkType(ctx context.Context, wt *model.WorkType) error
	CreateSubWorkType(ctx context.Context, sub *model.SubWorkType) error
	CreateActivity(ctx context.Context, activity *model.Activity) error

	FindWorkType(ctx context.Context, id uuid.UUID) (*model.WorkType, error)
	FindSubWorkType(ctx context.Context, id uuid.UUID) (*model.SubWorkType, error)
	FindActivity(ctx context.Context, id uuid.UUID) (*model.Activity, error)

	DeleteWorkType(ctx context.Context, id uuid.UUID) error
	DeleteSubWorkType(ctx context.Context, id uuid.UUID) error
	DeleteActivity(ctx context.Context, id uuid.UUID) error
}

type workTypeRepository struct {
	db *gorm.DB
}

func NewWorkTypeRepository(db *gorm.DB) WorkTypeRepository {
	return &workTypeRepository{db: db}
}

func (r *workTypeRepository) ListTree(ctx context.Context) ([]model.WorkType, error) {
	var types []model.WorkType
	if err := GetDB(ctx, r.db).
		Preload("SubWorkTypes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, code ASC") }).
		Preload("SubWorkTypes.Activities", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, code ASC") }).
		Order("sort_order ASC, code ASC").
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// FindByCode loads one work type with its full subtree.
func (r *workTypeRepository) FindByCode(ctx context.Context, code string) (*model.WorkType, error) {
	var wt model.WorkType
	if err := GetDB(ctx, r.db).
		Preload("SubWorkTypes.Activities").
		First(&wt, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &wt, nil
}

func (r *workTypeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.WorkType{}).Count(&count).Error
	return count, err
}

func (r *workTypeRepository) CreateWorkType(ctx context.Context, wt *model.WorkType) error {
	return GetDB(ctx, r.db).Create(wt).Error
}

func (r *workTypeRepository) CreateSubWorkType(ctx context.Context, sub *model.SubWorkType) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *workTypeRepository) CreateActivity(ctx context.Context, activity *model.Activity) error {
	return GetDB(ctx, r.db).Create(activity).Error
}

func (r *workTypeRepository) FindWorkType(ctx context.Context, id uuid.UUID) (*model.WorkType, error) {
	var wt model.WorkType
	if err := GetDB(ctx, r.db).First(&wt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wt, nil
}

func (r *workTypeRepository) FindSubWorkType(ctx context.Context, id uuid.UUID) (*model.SubWorkType, error) {
	var sub model.SubWorkType
	if err := GetDB(ctx, r.db).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *workTypeRepository) FindActivity(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	if err := GetDB(ctx, r.db).First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *workTypeRepository) DeleteWorkType(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.WorkType{}).Error
}

func (r *workTypeRepository) DeleteSubWorkType(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SubWorkType{}).Error
}

func (r *workTypeRepository) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Activity{}).Error
}
