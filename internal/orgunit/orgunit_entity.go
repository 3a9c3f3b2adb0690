package orgunit

import (
	"time"

	"github.com/google/uuid"
)

type Scope string

const (
	ScopePusat      Scope = "pusat"
	ScopeWilayah    Scope = "wilayah"
	ScopeKampus     Scope = "kampus"
	ScopeDepartemen Scope = "departemen"
	ScopeDivisi     Scope = "divisi"
	ScopeSeksi      Scope = "seksi"
)

var Scopes = []Scope{ScopePusat, ScopeWilayah, ScopeKampus, ScopeDepartemen, ScopeDivisi, ScopeSeksi}

func (s Scope) Valid() bool {
	for _, v := range Scopes {
		if s == v {
			return true
		}
	}
	return false
}

// AcceptsRegion: region_ref hanya bermakna untuk wilayah dan kampus.
func (s Scope) AcceptsRegion() bool {
	return s == ScopeWilayah || s == ScopeKampus
}

type Unit struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name      string     `gorm:"size:150;not null"`
	Scope     Scope      `gorm:"type:varchar(20);not null;index"`
	Level     int        `gorm:"not null"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"`
	RegionRef *string    `gorm:"size:64"`
	IsActive  bool       `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Unit) TableName() string {
	return "org_units"
}
