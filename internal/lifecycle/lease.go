package lifecycle

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// leaseTable hands out exclusive per-case leases. Operations on different
// cases never contend. Entries are dropped once no holder or waiter remains.
type leaseTable struct {
	mu     sync.Mutex
	leases map[string]*caseLease
}

type caseLease struct {
	sem  *semaphore.Weighted
	refs int
}

func newLeaseTable() *leaseTable {
	return &leaseTable{leases: make(map[string]*caseLease)}
}

// acquire blocks until the lease for id is free or ctx is done. The returned
// release func is safe to call more than once.
func (t *leaseTable) acquire(ctx context.Context, id string) (func(), error) {
	t.mu.Lock()
	l, ok := t.leases[id]
	if !ok {
		l = &caseLease{sem: semaphore.NewWeighted(1)}
		t.leases[id] = l
	}
	l.refs++
	t.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		t.drop(id, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			t.drop(id, l)
		})
	}, nil
}

func (t *leaseTable) drop(id string, l *caseLease) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.leases, id)
	}
}

func (t *leaseTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.leases)
}
