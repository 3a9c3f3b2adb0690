package structure

import (
	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/member"
)

type CreateUnitRequest struct {
	Name      string  `json:"name" binding:"required,min=2,max=150"`
	Scope     string  `json:"scope" binding:"required,oneof=pusat wilayah kampus departemen divisi seksi"`
	Level     *int    `json:"level" binding:"required,min=0"`
	ParentID  *string `json:"parent_id" binding:"omitempty,uuid"`
	RegionRef *string `json:"region_ref" binding:"omitempty,max=64"`
	IsActive  *bool   `json:"is_active"`
}

// UpdateUnitRequest adalah partial update; field nil tidak diubah.
// Melepas parent harus eksplisit lewat ClearParent.
type UpdateUnitRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=150"`
	Scope       *string `json:"scope" binding:"omitempty,oneof=pusat wilayah kampus departemen divisi seksi"`
	Level       *int    `json:"level" binding:"omitempty,min=0"`
	ParentID    *string `json:"parent_id" binding:"omitempty,uuid"`
	ClearParent bool    `json:"clear_parent"`
	RegionRef   *string `json:"region_ref" binding:"omitempty,max=64"`
	IsActive    *bool   `json:"is_active"`
}

type CreatePositionRequest struct {
	UnitID        string  `json:"unit_id" binding:"required,uuid"`
	Title         string  `json:"title" binding:"required,min=2,max=150"`
	PositionType  string  `json:"position_type" binding:"required,oneof=executive structural functional coordinator staff"`
	PositionLevel string  `json:"position_level" binding:"required,oneof=top middle lower"`
	MaxHolders    *int    `json:"max_holders"`
	ReportsTo     *string `json:"reports_to" binding:"omitempty,uuid"`
	IsActive      *bool   `json:"is_active"`
}

// MaxHolders tidak divalidasi lewat tag: cek okupansi harus jalan lebih dulu.
type UpdatePositionRequest struct {
	UnitID         *string `json:"unit_id" binding:"omitempty,uuid"`
	Title          *string `json:"title" binding:"omitempty,min=2,max=150"`
	PositionType   *string `json:"position_type" binding:"omitempty,oneof=executive structural functional coordinator staff"`
	PositionLevel  *string `json:"position_level" binding:"omitempty,oneof=top middle lower"`
	MaxHolders     *int    `json:"max_holders"`
	ReportsTo      *string `json:"reports_to" binding:"omitempty,uuid"`
	ClearReportsTo bool    `json:"clear_reports_to"`
	IsActive       *bool   `json:"is_active"`
}

type AssignMemberRequest struct {
	StartedAt               *string `json:"started_at" binding:"omitempty,datetime=2006-01-02"`
	EndedAt                 *string `json:"ended_at" binding:"omitempty,datetime=2006-01-02"`
	AssignmentType          string  `json:"assignment_type" binding:"omitempty,oneof=permanent acting interim"`
	AppointmentLetterNumber *string `json:"appointment_letter_number" binding:"omitempty,max=100"`
	AppointmentLetterDate   *string `json:"appointment_letter_date" binding:"omitempty,datetime=2006-01-02"`
	Notes                   *string `json:"notes" binding:"omitempty,max=1000"`
}

type EndAssignmentRequest struct {
	Reason  *string `json:"reason" binding:"omitempty,max=500"`
	EndDate *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

type AssignmentResponse struct {
	ID                      string                 `json:"id"`
	PositionID              string                 `json:"position_id"`
	UserID                  string                 `json:"user_id"`
	Status                  string                 `json:"status"`
	AssignmentType          string                 `json:"assignment_type"`
	StartedAt               string                 `json:"started_at"`
	EndedAt                 *string                `json:"ended_at"`
	AppointmentLetterNumber *string                `json:"appointment_letter_number"`
	AppointmentLetterDate   *string                `json:"appointment_letter_date"`
	Notes                   *string                `json:"notes"`
	EndedReason             *string                `json:"ended_reason"`
	CreatedBy               *string                `json:"created_by,omitempty"`
	EndedBy                 *string                `json:"ended_by,omitempty"`
	Member                  *member.MemberResponse `json:"member,omitempty"`
	CreatedAt               string                 `json:"created_at"`
	UpdatedAt               string                 `json:"updated_at"`
}

func mapAssignmentResponse(a assignment.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:                      a.ID.String(),
		PositionID:              a.PositionID.String(),
		UserID:                  a.UserID.String(),
		Status:                  string(a.Status),
		AssignmentType:          string(a.AssignmentType),
		StartedAt:               a.StartedAt.Format(assignment.DateLayout),
		EndedAt:                 formatDatePtr(a.EndedAt),
		AppointmentLetterNumber: a.AppointmentLetterNumber,
		AppointmentLetterDate:   formatDatePtr(a.AppointmentLetterDate),
		Notes:                   a.Notes,
		EndedReason:             a.EndedReason,
		CreatedAt:               formatTimestamp(a.CreatedAt),
		UpdatedAt:               formatTimestamp(a.UpdatedAt),
	}
	if a.CreatedBy != nil {
		s := a.CreatedBy.String()
		resp.CreatedBy = &s
	}
	if a.EndedBy != nil {
		s := a.EndedBy.String()
		resp.EndedBy = &s
	}
	return resp
}

func mapAssignmentList(items []assignment.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, mapAssignmentResponse(a))
	}
	return out
}
