package database

import (
	"fmt"

	"painai/internal/config"
	"painai/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// uniqueTimesheetIndex enforces one live entry per (user, project, date, work type, sub work type).
// A missing project is folded to the nil uuid so NULLs still collide.
const uniqueTimesheetIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_timesheets_unique_entry ON timesheets (
	user_id,
	COALESCE(project_id, '00000000-0000-0000-0000-000000000000'::uuid),
	work_date,
	work_type,
	sub_work_type
) WHERE deleted_at IS NULL`

// NewConnection opens the postgres pool and migrates the schema.
func NewConnection(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.Database.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database ready", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.AuditLog{},
		&model.Project{},
		&model.Holiday{},
		&model.WorkType{},
		&model.SubWorkType{},
		&model.Activity{},
		&model.Timesheet{},
		&model.TimesheetHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	if err := db.Exec(uniqueTimesheetIndex).Error; err != nil {
		return fmt.Errorf("failed to create timesheet unique index: %w", err)
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
