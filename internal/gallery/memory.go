package gallery

import (
	"context"
	"sort"
	"sync"
)

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Transactor = (*MemoryRepository)(nil)
)

// MemoryRepository keeps galleries in process memory. It is used for local
// development without a database and in tests. Records do not survive a
// restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]Gallery

	// txMu serialises write transactions started through RunInTx.
	txMu sync.Mutex
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[int64]Gallery)}
}

// memTxKey marks a context as inside a RunInTx of repo.
type memTxKey struct{ repo *MemoryRepository }

// RunInTx runs fn while holding the repository's transaction lock, so
// check-then-write sequences from different callers do not interleave.
// Nested calls join the outer transaction. There is no rollback.
func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{r}) != nil {
		return fn(ctx)
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{r}, struct{}{}))
}

func (r *MemoryRepository) Insert(_ context.Context, g *Gallery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	g.ID = r.nextID
	r.rows[g.ID] = *g
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*Gallery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r *MemoryRepository) FindAll(_ context.Context) ([]*Gallery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	galleries := make([]*Gallery, 0, len(r.rows))
	for _, g := range r.rows {
		g := g // per-iteration copy (go directive < 1.22)
		galleries = append(galleries, &g)
	}
	sort.Slice(galleries, func(i, j int) bool { return galleries[i].ID < galleries[j].ID })
	return galleries, nil
}

func (r *MemoryRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rows[id]
	return ok, nil
}

func (r *MemoryRepository) Update(_ context.Context, g *Gallery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[g.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = g.Title
	cur.Description = g.Description
	cur.LastUpdate = g.LastUpdate
	r.rows[g.ID] = cur
	return nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
