package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	HolidayTypePublic  = "public"
	HolidayTypeCompany = "company"
)

// Holiday is a non-working calendar day. At most one per date.
type Holiday struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date        time.Time `gorm:"type:date;uniqueIndex;not null" json:"date"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Type        string    `gorm:"type:varchar(20);not null;default:'public'" json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
