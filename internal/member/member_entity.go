package member

import (
	"time"

	"github.com/google/uuid"
)

// Member adalah baris dari direktori anggota (tabel users). Modul ini hanya membaca.
type Member struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Member) TableName() string {
	return "users"
}
