package assignment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

type Type string

const (
	TypePermanent Type = "permanent"
	TypeActing    Type = "acting"
	TypeInterim   Type = "interim"
)

var Types = []Type{TypePermanent, TypeActing, TypeInterim}

func (t Type) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

// Assignment tidak pernah dihapus. Setelah status ended, hanya metadata audit yang boleh berubah.
type Assignment struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PositionID              uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID                  uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartedAt               time.Time  `gorm:"type:date;not null"`
	EndedAt                 *time.Time `gorm:"type:date"`
	Status                  Status     `gorm:"type:varchar(10);not null;default:active"`
	AssignmentType          Type       `gorm:"type:varchar(20);not null;default:permanent"`
	AppointmentLetterNumber *string    `gorm:"size:100"`
	AppointmentLetterDate   *time.Time `gorm:"type:date"`
	Notes                   *string
	EndedReason             *string
	CreatedBy               *uuid.UUID `gorm:"type:uuid"`
	EndedBy                 *uuid.UUID `gorm:"type:uuid"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (Assignment) TableName() string {
	return "org_assignments"
}

func (a Assignment) IsActive() bool {
	return a.Status == StatusActive
}
