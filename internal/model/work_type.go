package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkType is the top level of the work classification tree, e.g. "PROJECT" or "LEAVE".
type WorkType struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name         string        `gorm:"type:varchar(255);not null" json:"name"`
	SortOrder    int           `gorm:"not null;default:0" json:"sort_order"`
	SubWorkTypes []SubWorkType `gorm:"foreignKey:WorkTypeID;constraint:OnDelete:CASCADE" json:"sub_work_types"`
	CreatedAt    time.Time     `json:"created_at"`
}

type SubWorkType struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkTypeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_sub_work_type_code" json:"work_type_id"`
	Code       string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_sub_work_type_code" json:"code"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	SortOrder  int        `gorm:"not null;default:0" json:"sort_order"`
	Activities []Activity `gorm:"foreignKey:SubWorkTypeID;constraint:OnDelete:CASCADE" json:"activities"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Activity struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubWorkTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_code" json:"sub_work_type_id"`
	Code          string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_activity_code" json:"code"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	SortOrder     int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
}

// FindSub returns the child with the given code.
func (w *WorkType) FindSub(code string) (*SubWorkType, bool) {
	for i := range w.SubWorkTypes {
		if w.SubWorkTypes[i].Code == code {
			return &w.SubWorkTypes[i], true
		}
	}
	return nil, false
}

// FindActivity returns the child with the given code.
func (s *SubWorkType) FindActivity(code string) (*Activity, bool) {
	for i := range s.Activities {
		if s.Activities[i].Code == code {
			return &s.Activities[i], true
		}
	}
	return nil, false
}
