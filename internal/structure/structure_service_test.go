package structure_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/events"
	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/messaging/kafka"
	kafkaMock "go-orgstructure/internal/messaging/kafka/mock"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgtest"
	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/dbtx"
	"go-orgstructure/internal/structure"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serviceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	store   *orgtest.Store
	outbox  *kafkaMock.MockOutboxRepository
	service structure.Service
	actor   access.Actor
}

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := orgtest.NewStore()
	outbox := kafkaMock.NewMockOutboxRepository(ctrl)

	return &serviceDeps{
		db:      db,
		sqlMock: sqlMock,
		store:   store,
		outbox:  outbox,
		service: newService(store, dbtx.NewRunner(db), outbox),
		actor:   access.NewActor(uuid.NewString(), access.AllCapabilities...),
	}
}

func newService(store *orgtest.Store, runner dbtx.Runner, outbox kafka.OutboxRepository) structure.Service {
	dir := member.NewDirectory(store.Members(), nil)
	builder := hierarchy.NewBuilder(store.Units(), store.Positions(), store.Assignments(), dir, nil, 0)
	return structure.NewService(runner, store.Units(), store.Positions(), store.Assignments(), dir, builder, outbox)
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

// expectOutbox menangkap event yang ditulis ke outbox.
func expectOutbox(deps *serviceDeps, captured *[]kafka.OutboxEvent) {
	deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
	deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e kafka.OutboxEvent) error {
			*captured = append(*captured, e)
			return nil
		},
	)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[T any](v T) *T { return &v }

type nopOutbox struct {
	mu     sync.Mutex
	events []kafka.OutboxEvent
}

func (o *nopOutbox) WithTx(*sql.Tx) kafka.OutboxRepository { return o }
func (o *nopOutbox) Create(_ context.Context, e kafka.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return nil
}
func (o *nopOutbox) ListPending(context.Context, int) ([]kafka.OutboxEvent, error) { return nil, nil }
func (o *nopOutbox) MarkSent(context.Context, string) error                        { return nil }
func (o *nopOutbox) MarkFailed(context.Context, string, string) error              { return nil }

func putUnit(store *orgtest.Store, name string, scope orgunit.Scope, parent *uuid.UUID) orgunit.Unit {
	return store.PutUnit(orgunit.Unit{Name: name, Scope: scope, ParentID: parent, IsActive: true})
}

func putPosition(store *orgtest.Store, unitID uuid.UUID, title string, maxHolders int) orgposition.Position {
	return store.PutPosition(orgposition.Position{
		UnitID:        unitID,
		Title:         title,
		PositionType:  orgposition.TypeStructural,
		PositionLevel: orgposition.LevelMiddle,
		MaxHolders:    maxHolders,
		IsActive:      true,
	})
}

func putMember(store *orgtest.Store, name string) member.Member {
	return store.PutMember(member.Member{FullName: name, Email: name + "@example.org", IsActive: true})
}

func TestStructureService_CreateUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("success - root unit", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{
			Name:  "  Pusat ",
			Scope: "pusat",
			Level: ptr(0),
		})

		require.NoError(t, err)
		assert.Equal(t, "Pusat", resp.Name)
		assert.Nil(t, resp.ParentID)
		assert.True(t, resp.IsActive)
		assert.Equal(t, 0, deps.store.Calls("units.LockTree"), "root unit does not need the tree lock")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success - child unit takes tree lock", func(t *testing.T) {
		deps := setupServiceTest(t)
		parent := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{
			Name:      "Wilayah Jawa Timur",
			Scope:     "wilayah",
			Level:     ptr(1),
			ParentID:  ptr(parent.ID.String()),
			RegionRef: ptr("JT"),
		})

		require.NoError(t, err)
		require.NotNil(t, resp.ParentID)
		assert.Equal(t, parent.ID.String(), *resp.ParentID)
		assert.Equal(t, 1, deps.store.Calls("units.LockTree"))
	})

	t.Run("parent not found rolls back", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{
			Name:     "Kampus Bandung",
			Scope:    "kampus",
			Level:    ptr(2),
			ParentID: ptr(uuid.NewString()),
		})

		assert.ErrorIs(t, err, structureerrors.ErrParentUnitNotFound)
		assert.Equal(t, 0, deps.store.Calls("units.Create"))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("region on pusat scope is rejected", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{
			Name:      "Pusat",
			Scope:     "pusat",
			Level:     ptr(0),
			RegionRef: ptr("JB"),
		})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("invalid scope and missing level", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{Name: "X1", Scope: "galaxy"})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("name shorter than two after trim", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.CreateUnit(ctx, deps.actor, structure.CreateUnitRequest{
			Name:  "  A  ",
			Scope: "pusat",
			Level: ptr(0),
		})

		assertCode(t, err, apperror.CodeValidation)
		assert.Equal(t, 0, deps.store.Calls("units.Create"))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("actor without manage is forbidden", func(t *testing.T) {
		deps := setupServiceTest(t)
		viewer := access.NewActor(uuid.NewString(), access.CapabilityView)

		_, err := deps.service.CreateUnit(ctx, viewer, structure.CreateUnitRequest{Name: "Pusat", Scope: "pusat", Level: ptr(0)})

		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestStructureService_UpdateUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("self parent is circular", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.UpdateUnit(ctx, deps.actor, unit.ID.String(), structure.UpdateUnitRequest{
			ParentID: ptr(unit.ID.String()),
		})

		assert.ErrorIs(t, err, structureerrors.ErrCircularReference)
	})

	t.Run("parent_id with clear_parent is invalid", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)

		_, err := deps.service.UpdateUnit(ctx, deps.actor, unit.ID.String(), structure.UpdateUnitRequest{
			ParentID:    ptr(uuid.NewString()),
			ClearParent: true,
		})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("scope change clears region", func(t *testing.T) {
		deps := setupServiceTest(t)
		region := "JB"
		unit := deps.store.PutUnit(orgunit.Unit{Name: "Wilayah JB", Scope: orgunit.ScopeWilayah, RegionRef: &region, IsActive: true})
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.UpdateUnit(ctx, deps.actor, unit.ID.String(), structure.UpdateUnitRequest{
			Scope: ptr("departemen"),
		})

		require.NoError(t, err)
		assert.Equal(t, "departemen", resp.Scope)
		assert.Nil(t, resp.RegionRef)
	})

	t.Run("move under sibling and clear parent", func(t *testing.T) {
		deps := setupServiceTest(t)
		root := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		a := putUnit(deps.store, "Departemen A", orgunit.ScopeDepartemen, &root.ID)
		b := putUnit(deps.store, "Departemen B", orgunit.ScopeDepartemen, &root.ID)

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.UpdateUnit(ctx, deps.actor, b.ID.String(), structure.UpdateUnitRequest{ParentID: ptr(a.ID.String())})
		require.NoError(t, err)
		assert.Equal(t, a.ID.String(), *resp.ParentID)

		expectTx(t, deps.sqlMock, true)
		resp, err = deps.service.UpdateUnit(ctx, deps.actor, b.ID.String(), structure.UpdateUnitRequest{ClearParent: true})
		require.NoError(t, err)
		assert.Nil(t, resp.ParentID)
	})

	t.Run("unit not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.UpdateUnit(ctx, deps.actor, uuid.NewString(), structure.UpdateUnitRequest{Name: ptr("Baru")})

		assert.ErrorIs(t, err, structureerrors.ErrUnitNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.UpdateUnit(ctx, deps.actor, "not-a-uuid", structure.UpdateUnitRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrInvalidID)
	})
}

func TestStructureService_DeleteUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("has children", func(t *testing.T) {
		deps := setupServiceTest(t)
		root := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		putUnit(deps.store, "Wilayah", orgunit.ScopeWilayah, &root.ID)
		putUnit(deps.store, "Wilayah 2", orgunit.ScopeWilayah, &root.ID)
		expectTx(t, deps.sqlMock, false)

		err := deps.service.DeleteUnit(ctx, deps.actor, root.ID.String())

		assert.ErrorIs(t, err, structureerrors.ErrHasChildren)
		appErr, _ := apperror.As(err)
		assert.Equal(t, structureerrors.CountDetails{Count: 2}, appErr.Details)
		_, stillThere := deps.store.Unit(root.ID)
		assert.True(t, stillThere)
	})

	t.Run("has positions", func(t *testing.T) {
		deps := setupServiceTest(t)
		root := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		putPosition(deps.store, root.ID, "Ketua", 1)
		expectTx(t, deps.sqlMock, false)

		err := deps.service.DeleteUnit(ctx, deps.actor, root.ID.String())

		assert.ErrorIs(t, err, structureerrors.ErrHasPositions)
	})

	t.Run("success", func(t *testing.T) {
		deps := setupServiceTest(t)
		root := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		expectTx(t, deps.sqlMock, true)

		err := deps.service.DeleteUnit(ctx, deps.actor, root.ID.String())

		require.NoError(t, err)
		_, stillThere := deps.store.Unit(root.ID)
		assert.False(t, stillThere)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestStructureService_ListParentOptions(t *testing.T) {
	deps := setupServiceTest(t)
	root := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
	wilayah := putUnit(deps.store, "Wilayah", orgunit.ScopeWilayah, &root.ID)
	putUnit(deps.store, "Kampus", orgunit.ScopeKampus, &wilayah.ID)
	other := putUnit(deps.store, "Departemen", orgunit.ScopeDepartemen, &root.ID)

	options, err := deps.service.ListParentOptions(context.Background(), deps.actor, wilayah.ID.String())

	require.NoError(t, err)
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{root.ID.String(), other.ID.String()}, ids)
}

func TestStructureService_CreatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults max_holders to one", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		expectTx(t, deps.sqlMock, true)

		slot, err := deps.service.CreatePosition(ctx, deps.actor, structure.CreatePositionRequest{
			UnitID:        unit.ID.String(),
			Title:         "Ketua Umum",
			PositionType:  "executive",
			PositionLevel: "top",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, slot.Position.MaxHolders)
		assert.Equal(t, int64(1), slot.Vacancies)
	})

	t.Run("max_holders below one", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)

		_, err := deps.service.CreatePosition(ctx, deps.actor, structure.CreatePositionRequest{
			UnitID:        unit.ID.String(),
			Title:         "Ketua Umum",
			PositionType:  "executive",
			PositionLevel: "top",
			MaxHolders:    ptr(0),
		})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("title shorter than two after trim", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)

		_, err := deps.service.CreatePosition(ctx, deps.actor, structure.CreatePositionRequest{
			UnitID:        unit.ID.String(),
			Title:         " K  ",
			PositionType:  "executive",
			PositionLevel: "top",
		})

		assertCode(t, err, apperror.CodeValidation)
		assert.Equal(t, 0, deps.store.Calls("positions.Create"))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unit not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.CreatePosition(ctx, deps.actor, structure.CreatePositionRequest{
			UnitID:        uuid.NewString(),
			Title:         "Ketua Umum",
			PositionType:  "executive",
			PositionLevel: "top",
		})

		assert.ErrorIs(t, err, structureerrors.ErrUnitNotFound)
	})

	t.Run("reports_to not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.CreatePosition(ctx, deps.actor, structure.CreatePositionRequest{
			UnitID:        unit.ID.String(),
			Title:         "Sekretaris",
			PositionType:  "structural",
			PositionLevel: "top",
			ReportsTo:     ptr(uuid.NewString()),
		})

		assert.ErrorIs(t, err, structureerrors.ErrReportsToNotFound)
	})
}

func TestStructureService_UpdatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("zero on empty position is a validation error", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Bendahara", 1)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.UpdatePosition(ctx, deps.actor, pos.ID.String(), structure.UpdatePositionRequest{MaxHolders: ptr(0)})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("raise capacity", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Staf", 1)
		deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: uuid.New(), Status: assignment.StatusActive})
		expectTx(t, deps.sqlMock, true)

		slot, err := deps.service.UpdatePosition(ctx, deps.actor, pos.ID.String(), structure.UpdatePositionRequest{
			MaxHolders: ptr(3),
			Title:      ptr("Staf Ahli"),
		})

		require.NoError(t, err)
		assert.Equal(t, 3, slot.Position.MaxHolders)
		assert.Equal(t, "Staf Ahli", slot.Position.Title)
		assert.Equal(t, int64(1), slot.ActiveHolders)
		assert.Equal(t, int64(2), slot.Vacancies)
		assert.Equal(t, 1, deps.store.Calls("positions.LockByID"))
	})

	t.Run("reports_to itself", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Staf", 1)

		_, err := deps.service.UpdatePosition(ctx, deps.actor, pos.ID.String(), structure.UpdatePositionRequest{
			ReportsTo: ptr(pos.ID.String()),
		})

		assertCode(t, err, apperror.CodeValidation)
	})
}

func TestStructureService_DeletePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("active holders block delete", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: uuid.New(), Status: assignment.StatusActive})
		expectTx(t, deps.sqlMock, false)

		err := deps.service.DeletePosition(ctx, deps.actor, pos.ID.String())

		assert.ErrorIs(t, err, structureerrors.ErrHasActiveAssignments)
	})

	t.Run("ended history does not block", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		old := deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: uuid.New(), Status: assignment.StatusEnded})
		expectTx(t, deps.sqlMock, true)

		err := deps.service.DeletePosition(ctx, deps.actor, pos.ID.String())

		require.NoError(t, err)
		_, kept := deps.store.Assignment(old.ID)
		assert.True(t, kept)
	})
}

func TestStructureService_AssignMember(t *testing.T) {
	ctx := context.Background()

	t.Run("success writes started event", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua Umum", 1)
		m := putMember(deps.store, "andi")

		var captured []kafka.OutboxEvent
		expectTx(t, deps.sqlMock, true)
		expectOutbox(deps, &captured)

		resp, err := deps.service.AssignMember(ctx, deps.actor, pos.ID.String(), m.ID.String(), structure.AssignMemberRequest{
			StartedAt:      ptr("2026-02-01"),
			AssignmentType: "acting",
			Notes:          ptr("  plt  "),
		})

		require.NoError(t, err)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, "acting", resp.AssignmentType)
		assert.Equal(t, "2026-02-01", resp.StartedAt)
		require.NotNil(t, resp.Notes)
		assert.Equal(t, "plt", *resp.Notes)
		assert.Equal(t, int64(1), deps.store.ActiveHolders(pos.ID))
		assert.Equal(t, 1, deps.store.Calls("positions.LockByID"))
		assert.Equal(t, 0, deps.store.Calls("positions.FindByID"))

		require.Len(t, captured, 1)
		assert.Equal(t, events.AssignmentLifecycleTopic, captured[0].Topic)
		assert.Equal(t, events.AssignmentStarted, captured[0].EventType)
		assert.Equal(t, resp.ID, captured[0].AggregateID)
		assert.Equal(t, kafka.OutboxStatusPending, captured[0].Status)

		var payload events.AssignmentLifecycleEvent
		require.NoError(t, json.Unmarshal(captured[0].Payload, &payload))
		assert.Equal(t, "Ketua Umum", payload.PositionTitle)
		assert.Equal(t, m.ID.String(), payload.UserID)
		assert.Equal(t, deps.actor.UserID, payload.ActorID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("inactive position", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := deps.store.PutPosition(orgposition.Position{UnitID: unit.ID, Title: "Lama", MaxHolders: 1, IsActive: false})
		m := putMember(deps.store, "andi")
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.AssignMember(ctx, deps.actor, pos.ID.String(), m.ID.String(), structure.AssignMemberRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrInactivePosition)
	})

	t.Run("member not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.AssignMember(ctx, deps.actor, pos.ID.String(), uuid.NewString(), structure.AssignMemberRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrMemberNotFound)
	})

	t.Run("duplicate before capacity", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		m := putMember(deps.store, "andi")
		deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: m.ID, Status: assignment.StatusActive})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.AssignMember(ctx, deps.actor, pos.ID.String(), m.ID.String(), structure.AssignMemberRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrDuplicateAssignment)
	})

	t.Run("ended_at before started_at", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.AssignMember(ctx, deps.actor, uuid.NewString(), uuid.NewString(), structure.AssignMemberRequest{
			StartedAt: ptr("2026-03-01"),
			EndedAt:   ptr("2026-02-01"),
		})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("malformed user id", func(t *testing.T) {
		deps := setupServiceTest(t)

		_, err := deps.service.AssignMember(ctx, deps.actor, uuid.NewString(), "andi", structure.AssignMemberRequest{})

		assertCode(t, err, apperror.CodeValidation)
	})

	t.Run("view only actor is forbidden", func(t *testing.T) {
		deps := setupServiceTest(t)
		viewer := access.NewActor(uuid.NewString(), access.CapabilityView)

		_, err := deps.service.AssignMember(ctx, viewer, uuid.NewString(), uuid.NewString(), structure.AssignMemberRequest{})

		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("outbox failure rolls back", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		m := putMember(deps.store, "andi")
		expectTx(t, deps.sqlMock, false)
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))

		_, err := deps.service.AssignMember(ctx, deps.actor, pos.ID.String(), m.ID.String(), structure.AssignMemberRequest{})

		assert.EqualError(t, err, "outbox down")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestStructureService_EndAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("success writes ended event", func(t *testing.T) {
		deps := setupServiceTest(t)
		unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
		pos := putPosition(deps.store, unit.ID, "Ketua", 1)
		a := deps.store.PutAssignment(assignment.Assignment{
			PositionID: pos.ID,
			UserID:     uuid.New(),
			Status:     assignment.StatusActive,
			StartedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})

		var captured []kafka.OutboxEvent
		expectTx(t, deps.sqlMock, true)
		expectOutbox(deps, &captured)

		resp, err := deps.service.EndAssignment(ctx, deps.actor, a.ID.String(), structure.EndAssignmentRequest{
			Reason:  ptr("masa bakti selesai"),
			EndDate: ptr("2026-01-31"),
		})

		require.NoError(t, err)
		assert.Equal(t, "ended", resp.Status)
		assert.Equal(t, "2026-01-31", *resp.EndedAt)
		assert.Equal(t, int64(0), deps.store.ActiveHolders(pos.ID))

		require.Len(t, captured, 1)
		var payload events.AssignmentLifecycleEvent
		require.NoError(t, json.Unmarshal(captured[0].Payload, &payload))
		assert.Equal(t, events.AssignmentEnded, payload.EventType)
		assert.Equal(t, "Ketua", payload.PositionTitle)
		require.NotNil(t, payload.EndedReason)
		assert.Equal(t, "masa bakti selesai", *payload.EndedReason)
	})

	t.Run("already ended", func(t *testing.T) {
		deps := setupServiceTest(t)
		a := deps.store.PutAssignment(assignment.Assignment{PositionID: uuid.New(), UserID: uuid.New(), Status: assignment.StatusEnded})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.EndAssignment(ctx, deps.actor, a.ID.String(), structure.EndAssignmentRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrAlreadyEnded)
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.EndAssignment(ctx, deps.actor, uuid.NewString(), structure.EndAssignmentRequest{})

		assert.ErrorIs(t, err, structureerrors.ErrAssignmentNotFound)
	})
}

func TestStructureService_ListEligibleMembers(t *testing.T) {
	deps := setupServiceTest(t)
	unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
	pos := putPosition(deps.store, unit.ID, "Anggota", 5)
	holder := putMember(deps.store, "budi")
	free := putMember(deps.store, "bunga")
	putMember(deps.store, "citra")
	deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: holder.ID, Status: assignment.StatusActive})

	got, err := deps.service.ListEligibleMembers(context.Background(), deps.actor, pos.ID.String(), "BU")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, free.ID.String(), got[0].ID)
}

func TestStructureService_ListAssignments(t *testing.T) {
	deps := setupServiceTest(t)
	unit := putUnit(deps.store, "Pusat", orgunit.ScopePusat, nil)
	pos := putPosition(deps.store, unit.ID, "Anggota", 5)
	m := putMember(deps.store, "dewi")
	deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: m.ID, Status: assignment.StatusActive, StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	deps.store.PutAssignment(assignment.Assignment{PositionID: pos.ID, UserID: uuid.New(), Status: assignment.StatusEnded, StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})

	active, err := deps.service.ListAssignments(context.Background(), deps.actor, pos.ID.String(), false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].Member)
	assert.Equal(t, "dewi", active[0].Member.FullName)

	all, err := deps.service.ListAssignments(context.Background(), deps.actor, pos.ID.String(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	history, err := deps.service.ListMemberAssignments(context.Background(), deps.actor, m.ID.String())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
