// Package orgtest provides in-memory repositories for tests of the org packages.
package orgtest

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store holds units, positions, assignments and members behind one mutex.
// Lookups of missing rows return gorm.ErrRecordNotFound like the gorm repositories.
type Store struct {
	mu          sync.Mutex
	units       map[uuid.UUID]orgunit.Unit
	positions   map[uuid.UUID]orgposition.Position
	assignments map[uuid.UUID]assignment.Assignment
	members     map[uuid.UUID]member.Member
	calls       map[string]int
	now         func() time.Time
	locks       *rowLocks
}

func NewStore() *Store {
	return &Store{
		units:       map[uuid.UUID]orgunit.Unit{},
		positions:   map[uuid.UUID]orgposition.Position{},
		assignments: map[uuid.UUID]assignment.Assignment{},
		members:     map[uuid.UUID]member.Member{},
		calls:       map[string]int{},
		now:         func() time.Time { return time.Now().UTC() },
		locks:       newRowLocks(),
	}
}

func (s *Store) Units() orgunit.Repository          { return unitRepo{s: s} }
func (s *Store) Positions() orgposition.Repository  { return positionRepo{s: s} }
func (s *Store) Assignments() assignment.Repository { return assignmentRepo{s: s} }
func (s *Store) Members() member.Repository         { return memberRepo{s} }

// Calls returns how many times a repository method was invoked, e.g. "units.List".
func (s *Store) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *Store) track(name string) {
	s.calls[name]++
}

func (s *Store) PutUnit(u orgunit.Unit) orgunit.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
	}
	s.units[u.ID] = u
	return u
}

func (s *Store) PutPosition(p orgposition.Position) orgposition.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.positions[p.ID] = p
	return p
}

func (s *Store) PutAssignment(a assignment.Assignment) assignment.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.assignments[a.ID] = a
	return a
}

func (s *Store) PutMember(m member.Member) member.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.members[m.ID] = m
	return m
}

func (s *Store) Unit(id uuid.UUID) (orgunit.Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	return u, ok
}

func (s *Store) Position(id uuid.UUID) (orgposition.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	return p, ok
}

func (s *Store) Assignment(id uuid.UUID) (assignment.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	return a, ok
}

func (s *Store) ActiveHolders(positionID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveLocked(positionID)
}

func (s *Store) countActiveLocked(positionID uuid.UUID) int64 {
	var n int64
	for _, a := range s.assignments {
		if a.PositionID == positionID && a.Status == assignment.StatusActive {
			n++
		}
	}
	return n
}

// ---- units ----

type unitRepo struct {
	s  *Store
	tx *sql.Tx
}

func (r unitRepo) WithTx(tx *sql.Tx) orgunit.Repository { return unitRepo{s: r.s, tx: tx} }

func (r unitRepo) Create(_ context.Context, u *orgunit.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.Create")
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.units[u.ID] = *u
	return nil
}

func (r unitRepo) Update(_ context.Context, u *orgunit.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.Update")
	u.UpdatedAt = r.s.now()
	r.s.units[u.ID] = *u
	return nil
}

func (r unitRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.Delete")
	delete(r.s.units, id)
	return nil
}

func (r unitRepo) FindByID(_ context.Context, id uuid.UUID) (*orgunit.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.FindByID")
	u, ok := r.s.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r unitRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]orgunit.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.FindByIDs")
	out := []orgunit.Unit{}
	for _, id := range ids {
		if u, ok := r.s.units[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r unitRepo) LockByID(_ context.Context, id uuid.UUID) (*orgunit.Unit, error) {
	r.s.locks.lock(r.tx, id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.LockByID")
	u, ok := r.s.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r unitRepo) List(_ context.Context, f orgunit.Filter) ([]orgunit.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.List")
	out := []orgunit.Unit{}
	for _, u := range r.s.units {
		if f.Scope != "" && string(u.Scope) != f.Scope {
			continue
		}
		if f.RegionRef != "" && (u.RegionRef == nil || *u.RegionRef != f.RegionRef) {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, u)
	}
	sortUnits(out, f.Sort)
	return out, nil
}

func (r unitRepo) ListChildren(_ context.Context, parentID uuid.UUID) ([]orgunit.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.ListChildren")
	out := []orgunit.Unit{}
	for _, u := range r.s.units {
		if u.ParentID != nil && *u.ParentID == parentID {
			out = append(out, u)
		}
	}
	sortUnits(out, "")
	return out, nil
}

func (r unitRepo) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	children, _ := r.ListChildren(ctx, parentID)
	return int64(len(children)), nil
}

func (r unitRepo) GetDescendantIDs(_ context.Context, id uuid.UUID) (map[uuid.UUID]struct{}, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.GetDescendantIDs")
	out := map[uuid.UUID]struct{}{}
	frontier := []uuid.UUID{id}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= orgunit.MaxTreeDepth {
			return out, orgunit.ErrTreeTooDeep
		}
		var next []uuid.UUID
		for _, u := range r.s.units {
			if u.ParentID == nil || u.ID == id {
				continue
			}
			for _, f := range frontier {
				if *u.ParentID == f {
					if _, seen := out[u.ID]; !seen {
						out[u.ID] = struct{}{}
						next = append(next, u.ID)
					}
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (r unitRepo) LockTree(context.Context) error {
	r.s.locks.lock(r.tx, treeLockKey)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.LockTree")
	return nil
}

func (r unitRepo) CountByScope(context.Context) ([]orgunit.ScopeCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("units.CountByScope")
	counts := map[orgunit.Scope]int64{}
	for _, u := range r.s.units {
		counts[u.Scope]++
	}
	out := []orgunit.ScopeCount{}
	for scope, total := range counts {
		out = append(out, orgunit.ScopeCount{Scope: scope, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out, nil
}

func sortUnits(units []orgunit.Unit, by string) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		switch by {
		case "level":
			if a.Level != b.Level {
				return a.Level < b.Level
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
}

// ---- positions ----

type positionRepo struct {
	s  *Store
	tx *sql.Tx
}

func (r positionRepo) WithTx(tx *sql.Tx) orgposition.Repository {
	return positionRepo{s: r.s, tx: tx}
}

func (r positionRepo) Create(_ context.Context, p *orgposition.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.Create")
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.positions[p.ID] = *p
	return nil
}

func (r positionRepo) Update(_ context.Context, p *orgposition.Position) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.Update")
	p.UpdatedAt = r.s.now()
	r.s.positions[p.ID] = *p
	return nil
}

func (r positionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.Delete")
	delete(r.s.positions, id)
	return nil
}

func (r positionRepo) FindByID(_ context.Context, id uuid.UUID) (*orgposition.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.FindByID")
	p, ok := r.s.positions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r positionRepo) LockByID(_ context.Context, id uuid.UUID) (*orgposition.Position, error) {
	r.s.locks.lock(r.tx, id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.LockByID")
	p, ok := r.s.positions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r positionRepo) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]orgposition.Position, error) {
	return r.ListByUnitIDs(ctx, []uuid.UUID{unitID})
}

func (r positionRepo) ListByUnitIDs(_ context.Context, unitIDs []uuid.UUID) ([]orgposition.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.ListByUnitIDs")
	want := map[uuid.UUID]bool{}
	for _, id := range unitIDs {
		want[id] = true
	}
	out := []orgposition.Position{}
	for _, p := range r.s.positions {
		if want[p.UnitID] {
			out = append(out, p)
		}
	}
	sortPositions(out)
	return out, nil
}

func (r positionRepo) ListAll(context.Context) ([]orgposition.Position, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("positions.ListAll")
	out := make([]orgposition.Position, 0, len(r.s.positions))
	for _, p := range r.s.positions {
		out = append(out, p)
	}
	sortPositions(out)
	return out, nil
}

func (r positionRepo) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	list, _ := r.ListByUnit(ctx, unitID)
	return int64(len(list)), nil
}

func sortPositions(positions []orgposition.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].Title != positions[j].Title {
			return positions[i].Title < positions[j].Title
		}
		return positions[i].ID.String() < positions[j].ID.String()
	})
}

// ---- assignments ----

type assignmentRepo struct {
	s  *Store
	tx *sql.Tx
}

func (r assignmentRepo) WithTx(tx *sql.Tx) assignment.Repository {
	return assignmentRepo{s: r.s, tx: tx}
}

func (r assignmentRepo) Create(_ context.Context, a *assignment.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.Create")
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.assignments[a.ID] = *a
	return nil
}

func (r assignmentRepo) FindByID(_ context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.FindByID")
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r assignmentRepo) LockByID(_ context.Context, id uuid.UUID) (*assignment.Assignment, error) {
	r.s.locks.lock(r.tx, id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.LockByID")
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r assignmentRepo) End(_ context.Context, id uuid.UUID, params assignment.EndParams) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.End")
	a, ok := r.s.assignments[id]
	if !ok || a.Status != assignment.StatusActive {
		return 0, nil
	}
	endedAt := params.EndedAt
	a.Status = assignment.StatusEnded
	a.EndedAt = &endedAt
	a.EndedReason = params.Reason
	a.EndedBy = params.EndedBy
	a.UpdatedAt = r.s.now()
	r.s.assignments[id] = a
	return 1, nil
}

func (r assignmentRepo) HasActive(_ context.Context, positionID, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.HasActive")
	for _, a := range r.s.assignments {
		if a.PositionID == positionID && a.UserID == userID && a.Status == assignment.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r assignmentRepo) CountActiveByPosition(_ context.Context, positionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.CountActiveByPosition")
	return r.s.countActiveLocked(positionID), nil
}

func (r assignmentRepo) ActiveCountsByPositions(_ context.Context, positionIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.ActiveCountsByPositions")
	out := make(map[uuid.UUID]int64, len(positionIDs))
	for _, id := range positionIDs {
		if n := r.s.countActiveLocked(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (r assignmentRepo) ActiveCounts(context.Context) (map[uuid.UUID]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.ActiveCounts")
	out := map[uuid.UUID]int64{}
	for _, a := range r.s.assignments {
		if a.Status == assignment.StatusActive {
			out[a.PositionID]++
		}
	}
	return out, nil
}

func (r assignmentRepo) CountActive(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.assignments {
		if a.Status == assignment.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r assignmentRepo) ListByPosition(_ context.Context, positionID uuid.UUID, includeEnded bool) ([]assignment.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.ListByPosition")
	out := []assignment.Assignment{}
	for _, a := range r.s.assignments {
		if a.PositionID != positionID {
			continue
		}
		if !includeEnded && a.Status != assignment.StatusActive {
			continue
		}
		out = append(out, a)
	}
	sortAssignments(out)
	return out, nil
}

func (r assignmentRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]assignment.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("assignments.ListByUser")
	out := []assignment.Assignment{}
	for _, a := range r.s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func sortAssignments(items []assignment.Assignment) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].StartedAt.Equal(items[j].StartedAt) {
			return items[i].StartedAt.After(items[j].StartedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// ---- members ----

type memberRepo struct{ s *Store }

func (r memberRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	return ok && m.IsActive, nil
}

func (r memberRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []member.Member{}
	for _, id := range ids {
		if m, ok := r.s.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memberRepo) FindActive(context.Context) ([]member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []member.Member{}
	for _, m := range r.s.members {
		if m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].FullName) < strings.ToLower(out[j].FullName)
	})
	return out, nil
}
