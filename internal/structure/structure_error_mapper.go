package structure

import (
	"errors"
	"strings"

	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/shared/apperror"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintActiveHolder   = "uq_org_assignment_active_holder"
	constraintUnitParent     = "fk_org_units_parent"
	constraintPositionUnit   = "fk_org_positions_unit"
	constraintPositionReport = "fk_org_positions_reports_to"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapRepositoryError menerjemahkan error storage ke error domain.
// notFound dipakai untuk gorm.ErrRecordNotFound; nil berarti diteruskan apa adanya.
func mapRepositoryError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}

	if errors.Is(err, orgunit.ErrTreeTooDeep) {
		return structureerrors.ErrCircularReference.WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == constraintActiveHolder {
				return structureerrors.ErrDuplicateAssignment.WithCause(err)
			}
		case pgForeignKeyViolation:
			// "update or delete on table ..." = baris yang dihapus masih direferensikan
			deleting := strings.HasPrefix(strings.ToLower(pgErr.Message), "update or delete")
			switch pgErr.ConstraintName {
			case constraintUnitParent:
				if deleting {
					return structureerrors.ErrHasChildren.WithCause(err)
				}
				return structureerrors.ErrParentUnitNotFound.WithCause(err)
			case constraintPositionUnit:
				if deleting {
					return structureerrors.ErrHasPositions.WithCause(err)
				}
				return structureerrors.ErrUnitNotFound.WithCause(err)
			case constraintPositionReport:
				return structureerrors.ErrReportsToNotFound.WithCause(err)
			}
		case pgCheckViolation:
			return apperror.Validation(checkField(pgErr), "violates constraint "+pgErr.ConstraintName).WithCause(err)
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, constraintActiveHolder) {
		return structureerrors.ErrDuplicateAssignment.WithCause(err)
	}

	return err
}

func checkField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.TableName
}
