package orgtest

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"go-orgstructure/internal/shared/dbtx"

	"github.com/google/uuid"
)

// treeLockKey menggantikan advisory lock pohon unit.
var treeLockKey = uuid.Nil

// rowLocks meniru SELECT ... FOR UPDATE: kunci baris dipegang sampai transaksi
// dari Runner selesai. Transaksi dari runner lain (sqlmock) tidak mengunci apa pun.
type rowLocks struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*sync.Mutex
	held map[*sql.Tx][]uuid.UUID
}

func newRowLocks() *rowLocks {
	return &rowLocks{
		rows: map[uuid.UUID]*sync.Mutex{},
		held: map[*sql.Tx][]uuid.UUID{},
	}
}

func (l *rowLocks) begin(tx *sql.Tx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[tx] = []uuid.UUID{}
}

func (l *rowLocks) lock(tx *sql.Tx, id uuid.UUID) {
	l.mu.Lock()
	held, tracked := l.held[tx]
	if tx == nil || !tracked || slices.Contains(held, id) {
		l.mu.Unlock()
		return
	}
	row, ok := l.rows[id]
	if !ok {
		row = &sync.Mutex{}
		l.rows[id] = row
	}
	l.mu.Unlock()

	// menunggu di luar l.mu, seperti transaksi yang antre di row lock
	row.Lock()

	l.mu.Lock()
	l.held[tx] = append(l.held[tx], id)
	l.mu.Unlock()
}

func (l *rowLocks) release(tx *sql.Tx) {
	l.mu.Lock()
	held := l.held[tx]
	delete(l.held, tx)
	rows := make([]*sync.Mutex, 0, len(held))
	for _, id := range held {
		rows = append(rows, l.rows[id])
	}
	l.mu.Unlock()

	for _, row := range rows {
		row.Unlock()
	}
}

// Runner menjalankan fn tanpa serialisasi global; yang antre hanya transaksi
// yang mengunci baris yang sama lewat LockByID atau LockTree.
func (s *Store) Runner() dbtx.Runner {
	return storeRunner{s: s}
}

type storeRunner struct{ s *Store }

func (r storeRunner) Run(_ context.Context, _ string, fn dbtx.TxFunc) error {
	// hanya identitas transaksi; method *sql.Tx tidak pernah dipanggil
	tx := new(sql.Tx)
	r.s.locks.begin(tx)
	defer r.s.locks.release(tx)
	return fn(tx)
}
