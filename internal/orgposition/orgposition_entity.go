package orgposition

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeExecutive   Type = "executive"
	TypeStructural  Type = "structural"
	TypeFunctional  Type = "functional"
	TypeCoordinator Type = "coordinator"
	TypeStaff       Type = "staff"
)

var Types = []Type{TypeExecutive, TypeStructural, TypeFunctional, TypeCoordinator, TypeStaff}

func (t Type) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

type Level string

const (
	LevelTop    Level = "top"
	LevelMiddle Level = "middle"
	LevelLower  Level = "lower"
)

var Levels = []Level{LevelTop, LevelMiddle, LevelLower}

func (l Level) Valid() bool {
	for _, v := range Levels {
		if l == v {
			return true
		}
	}
	return false
}

const DefaultMaxHolders = 1

type Position struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UnitID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title         string     `gorm:"size:150;not null"`
	PositionType  Type       `gorm:"type:varchar(20);not null"`
	PositionLevel Level      `gorm:"type:varchar(10);not null"`
	MaxHolders    int        `gorm:"not null;default:1"`
	ReportsTo     *uuid.UUID `gorm:"type:uuid"`
	IsActive      bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Position) TableName() string {
	return "org_positions"
}

// Vacancies tidak pernah negatif, walaupun data lama melebihi kapasitas.
func Vacancies(maxHolders int, activeHolders int64) int64 {
	v := int64(maxHolders) - activeHolders
	if v < 0 {
		return 0
	}
	return v
}
