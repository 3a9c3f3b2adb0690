package orgposition_test

import (
	"context"
	"testing"

	"go-orgstructure/internal/orgposition"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEnums(t *testing.T) {
	assert.True(t, orgposition.TypeCoordinator.Valid())
	assert.False(t, orgposition.Type("intern").Valid())
	assert.True(t, orgposition.LevelMiddle.Valid())
	assert.False(t, orgposition.Level("c-suite").Valid())
}

func TestVacancies(t *testing.T) {
	assert.Equal(t, int64(2), orgposition.Vacancies(3, 1))
	assert.Equal(t, int64(0), orgposition.Vacancies(1, 1))
	assert.Equal(t, int64(0), orgposition.Vacancies(1, 4))
}

func TestRepository_LockByID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	id := uuid.New()
	unitID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "org_positions" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "unit_id", "title", "position_type", "position_level", "max_holders", "is_active"}).
			AddRow(id.String(), unitID.String(), "Kepala Seksi", "structural", "lower", 2, true))
	mock.ExpectCommit()

	tx, err := sqlDB.Begin()
	require.NoError(t, err)

	got, err := orgposition.NewRepository(gormDB).WithTx(tx).LockByID(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, id, got.ID)
	assert.Equal(t, unitID, got.UnitID)
	assert.Equal(t, 2, got.MaxHolders)
	assert.Equal(t, orgposition.TypeStructural, got.PositionType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
