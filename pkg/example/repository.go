package example

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Repository stores examples.
type Repository interface {
	// Save stores e, assigning its ID.
	Save(ctx context.Context, e *Example) (*Example, error)

	// FindByDNI returns the example with dni, or nil.
	FindByDNI(ctx context.Context, dni string) (*Example, error)

	// ExistsByDNI reports whether an example with dni is stored.
	ExistsByDNI(ctx context.Context, dni string) (bool, error)

	// FindAll returns every example ordered by ID.
	FindAll(ctx context.Context) ([]*Example, error)
}

// MemoryRepository is a Repository held in memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	byDNI  map[string]*Example
	nextID int64
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byDNI: make(map[string]*Example)}
}

// Save stores a copy of e. A DNI that is already stored yields an
// AlreadyExistsError, so concurrent creates cannot both succeed.
func (r *MemoryRepository) Save(ctx context.Context, e *Example) (*Example, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byDNI[e.DNI]; ok {
		return nil, NewAlreadyExistsError(e.DNI)
	}

	r.nextID++
	stored := *e
	stored.ID = r.nextID
	r.byDNI[stored.DNI] = &stored

	saved := stored
	return &saved, nil
}

// FindByDNI returns a copy of the example with dni, or nil.
func (r *MemoryRepository) FindByDNI(ctx context.Context, dni string) (*Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byDNI[dni]
	if !ok {
		return nil, nil
	}
	found := *e
	return &found, nil
}

// ExistsByDNI reports whether an example with dni is stored.
func (r *MemoryRepository) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byDNI[dni]
	return ok, nil
}

// FindAll returns copies of every example ordered by ID.
func (r *MemoryRepository) FindAll(ctx context.Context) ([]*Example, error) {
	r.mu.RLock()
	all := lo.MapToSlice(r.byDNI, func(_ string, e *Example) *Example {
		c := *e
		return &c
	})
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}
