package hierarchy

import (
	"time"

	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"

	"github.com/google/uuid"
)

// Filter untuk GetHierarchy. IsActive nil berarti default active-only,
// kecuali AllStatuses di-set.
type Filter struct {
	Scope       string `form:"scope" json:"scope,omitempty" binding:"omitempty,oneof=pusat wilayah kampus departemen divisi seksi"`
	RegionID    string `form:"region_id" json:"region_id,omitempty" binding:"omitempty,max=64"`
	IsActive    *bool  `form:"-" json:"is_active,omitempty"`
	AllStatuses bool   `form:"-" json:"all_statuses,omitempty"`
	Sort        string `form:"sort" json:"sort,omitempty" binding:"omitempty,oneof=name level created_at"`
}

func (f Filter) Normalize() Filter {
	if f.AllStatuses {
		f.IsActive = nil
		return f
	}
	if f.IsActive == nil {
		active := true
		f.IsActive = &active
	}
	return f
}

// UnitFilter menerjemahkan filter HTTP ke filter repository unit.
func (f Filter) UnitFilter() orgunit.Filter {
	return orgunit.Filter{
		Scope:     f.Scope,
		RegionRef: f.RegionID,
		IsActive:  f.IsActive,
		Sort:      f.Sort,
	}
}

type UnitView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Scope     string  `json:"scope"`
	Level     int     `json:"level"`
	ParentID  *string `json:"parent_id"`
	RegionRef *string `json:"region_ref"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type UnitSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

type PositionView struct {
	ID            string  `json:"id"`
	UnitID        string  `json:"unit_id"`
	Title         string  `json:"title"`
	PositionType  string  `json:"position_type"`
	PositionLevel string  `json:"position_level"`
	MaxHolders    int     `json:"max_holders"`
	ReportsTo     *string `json:"reports_to"`
	IsActive      bool    `json:"is_active"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type PositionSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type PositionSlot struct {
	Position      PositionView `json:"position"`
	ActiveHolders int64        `json:"active_holders"`
	Vacancies     int64        `json:"vacancies"`
}

type TreeNode struct {
	Unit      UnitView       `json:"unit"`
	Positions []PositionSlot `json:"positions"`
	Children  []*TreeNode    `json:"children"`
}

type UnitDetail struct {
	Unit      UnitView       `json:"unit"`
	Parent    *UnitSummary   `json:"parent"`
	Positions []PositionSlot `json:"positions"`
	Children  []UnitView     `json:"children"`
}

type HolderView struct {
	AssignmentID            string  `json:"assignment_id"`
	UserID                  string  `json:"user_id"`
	FullName                string  `json:"full_name,omitempty"`
	Email                   string  `json:"email,omitempty"`
	AssignmentType          string  `json:"assignment_type"`
	StartedAt               string  `json:"started_at"`
	EndedAt                 *string `json:"ended_at"`
	AppointmentLetterNumber *string `json:"appointment_letter_number"`
}

type PositionDetail struct {
	PositionSlot
	Unit      UnitSummary      `json:"unit"`
	ReportsTo *PositionSummary `json:"reports_to_position"`
	Holders   []HolderView     `json:"holders"`
}

type Statistics struct {
	UnitsByScope         map[string]int64 `json:"units_by_scope"`
	TotalUnits           int64            `json:"total_units"`
	TotalPositions       int64            `json:"total_positions"`
	ActiveAssignments    int64            `json:"active_assignments"`
	VacantPositions      int64            `json:"vacant_positions"`
	AverageOccupancyRate float64          `json:"average_occupancy_rate"`
}

func ToUnitView(u orgunit.Unit) UnitView {
	return UnitView{
		ID:        u.ID.String(),
		Name:      u.Name,
		Scope:     string(u.Scope),
		Level:     u.Level,
		ParentID:  uuidPtrToString(u.ParentID),
		RegionRef: u.RegionRef,
		IsActive:  u.IsActive,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

func ToUnitSummary(u orgunit.Unit) UnitSummary {
	return UnitSummary{ID: u.ID.String(), Name: u.Name, Scope: string(u.Scope)}
}

func ToPositionView(p orgposition.Position) PositionView {
	return PositionView{
		ID:            p.ID.String(),
		UnitID:        p.UnitID.String(),
		Title:         p.Title,
		PositionType:  string(p.PositionType),
		PositionLevel: string(p.PositionLevel),
		MaxHolders:    p.MaxHolders,
		ReportsTo:     uuidPtrToString(p.ReportsTo),
		IsActive:      p.IsActive,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

func ToPositionSlot(p orgposition.Position, active int64) PositionSlot {
	return PositionSlot{
		Position:      ToPositionView(p),
		ActiveHolders: active,
		Vacancies:     orgposition.Vacancies(p.MaxHolders, active),
	}
}

func ToHolderView(a assignment.Assignment) HolderView {
	h := HolderView{
		AssignmentID:            a.ID.String(),
		UserID:                  a.UserID.String(),
		AssignmentType:          string(a.AssignmentType),
		StartedAt:               a.StartedAt.Format(assignment.DateLayout),
		AppointmentLetterNumber: a.AppointmentLetterNumber,
	}
	if a.EndedAt != nil {
		s := a.EndedAt.Format(assignment.DateLayout)
		h.EndedAt = &s
	}
	return h
}

func uuidPtrToString(v *uuid.UUID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
