package structureerrors

import (
	"go-orgstructure/internal/shared/apperror"
	"net/http"
)

const (
	CodeCircularReference      = "CIRCULAR_REFERENCE"
	CodeHasChildren            = "HAS_CHILDREN"
	CodeHasPositions           = "HAS_POSITIONS"
	CodeHasActiveAssignments   = "HAS_ACTIVE_ASSIGNMENTS"
	CodeDuplicateAssignment    = "DUPLICATE_ASSIGNMENT"
	CodeCapacityExceeded       = "CAPACITY_EXCEEDED"
	CodeCapacityBelowOccupancy = "CAPACITY_BELOW_OCCUPANCY"
	CodeAlreadyEnded           = "ALREADY_ENDED"
	CodeInactivePosition       = "INACTIVE_POSITION"
)

type CountDetails struct {
	Count int64 `json:"count"`
}

type CapacityDetails struct {
	MaxHolders    int   `json:"max_holders"`
	ActiveHolders int64 `json:"active_holders"`
}

var (
	ErrUnitNotFound = apperror.New(
		apperror.CodeNotFound,
		"Unit not found",
		http.StatusNotFound,
	)
	ErrParentUnitNotFound = apperror.New(
		apperror.CodeNotFound,
		"Parent unit not found",
		http.StatusNotFound,
	)
	ErrPositionNotFound = apperror.New(
		apperror.CodeNotFound,
		"Position not found",
		http.StatusNotFound,
	)
	ErrReportsToNotFound = apperror.New(
		apperror.CodeNotFound,
		"Reports-to position not found",
		http.StatusNotFound,
	)
	ErrAssignmentNotFound = apperror.New(
		apperror.CodeNotFound,
		"Assignment not found",
		http.StatusNotFound,
	)
	ErrMemberNotFound = apperror.New(
		apperror.CodeNotFound,
		"Member not found",
		http.StatusNotFound,
	)
	ErrCircularReference = apperror.New(
		CodeCircularReference,
		"Parent unit cannot be the unit itself or one of its descendants",
		http.StatusUnprocessableEntity,
	)
	ErrHasChildren = apperror.New(
		CodeHasChildren,
		"Unit still has child units",
		http.StatusConflict,
	)
	ErrHasPositions = apperror.New(
		CodeHasPositions,
		"Unit still has positions",
		http.StatusConflict,
	)
	ErrHasActiveAssignments = apperror.New(
		CodeHasActiveAssignments,
		"Position still has active holders",
		http.StatusConflict,
	)
	ErrDuplicateAssignment = apperror.New(
		CodeDuplicateAssignment,
		"Member already holds this position",
		http.StatusConflict,
	)
	ErrCapacityExceeded = apperror.New(
		CodeCapacityExceeded,
		"Position has no vacancy left",
		http.StatusConflict,
	)
	ErrCapacityBelowOccupancy = apperror.New(
		CodeCapacityBelowOccupancy,
		"Max holders cannot be lower than the current number of active holders",
		http.StatusUnprocessableEntity,
	)
	ErrAlreadyEnded = apperror.New(
		CodeAlreadyEnded,
		"Assignment has already ended",
		http.StatusConflict,
	)
	ErrInactivePosition = apperror.New(
		CodeInactivePosition,
		"Position is inactive",
		http.StatusUnprocessableEntity,
	)
	ErrInvalidSort = apperror.New(
		apperror.CodeValidation,
		"Sort must be one of: name, level, created_at",
		http.StatusBadRequest,
	)
	ErrInvalidID = apperror.New(
		apperror.CodeValidation,
		"Invalid id",
		http.StatusBadRequest,
	)
)

func HasChildren(count int64) *apperror.AppError {
	return ErrHasChildren.WithDetails(CountDetails{Count: count})
}

func HasPositions(count int64) *apperror.AppError {
	return ErrHasPositions.WithDetails(CountDetails{Count: count})
}

func HasActiveAssignments(count int64) *apperror.AppError {
	return ErrHasActiveAssignments.WithDetails(CountDetails{Count: count})
}

func CapacityExceeded(maxHolders int, active int64) *apperror.AppError {
	return ErrCapacityExceeded.WithDetails(CapacityDetails{MaxHolders: maxHolders, ActiveHolders: active})
}

func CapacityBelowOccupancy(maxHolders int, active int64) *apperror.AppError {
	return ErrCapacityBelowOccupancy.WithDetails(CapacityDetails{MaxHolders: maxHolders, ActiveHolders: active})
}
