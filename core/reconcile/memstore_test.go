package reconcile_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"repo-sync/core/provider"
	"repo-sync/core/reconcile"
)

// memStore is an in-memory reconcile.Store.
type memStore struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]reconcile.Record
	writes  int

	// failList makes ListByOwner fail.
	failList error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uint]reconcile.Record)}
}

func (s *memStore) Find(_ context.Context, owner, machineName, source string) (*reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Owner == owner && r.MachineName == machineName && r.Source == source {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListByOwner(_ context.Context, owner string) ([]reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	var out []reconcile.Record
	for _, r := range s.records {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) URLOwnedByOther(_ context.Context, url, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedByOther(url, owner), nil
}

func (s *memStore) ownedByOther(url, owner string) bool {
	for _, r := range s.records {
		if r.URL == url && r.Owner != owner {
			return true
		}
	}
	return false
}

func (s *memStore) Create(_ context.Context, rec *reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownedByOther(rec.URL, rec.Owner) {
		return provider.ErrDuplicateOwnership
	}
	s.nextID++
	rec.ID = s.nextID
	s.records[rec.ID] = *rec
	s.writes++
	return nil
}

func (s *memStore) Update(_ context.Context, rec *reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return errors.New("record not found")
	}
	if s.ownedByOther(rec.URL, rec.Owner) {
		return provider.ErrDuplicateOwnership
	}
	s.records[rec.ID] = *rec
	s.writes++
	return nil
}

func (s *memStore) Delete(_ context.Context, rec *reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, rec.ID)
	s.writes++
	return nil
}

// seed stores a record directly, bypassing the engine.
func (s *memStore) seed(rec reconcile.Record) reconcile.Record {
	_ = s.Create(context.Background(), &rec)
	s.mu.Lock()
	s.writes--
	s.mu.Unlock()
	return rec
}

func (s *memStore) names(owner string) []string {
	recs, _ := s.ListByOwner(context.Background(), owner)
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.MachineName)
	}
	sort.Strings(names)
	return names
}

func (s *memStore) get(owner, machineName string) *reconcile.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Owner == owner && r.MachineName == machineName {
			rec := r
			return &rec
		}
	}
	return nil
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// racingStore holds every ownership check until parties checks are pending,
// so concurrent passes all plan before any of them writes.
type racingStore struct {
	*memStore
	checks sync.WaitGroup
}

func newRacingStore(inner *memStore, parties int) *racingStore {
	s := &racingStore{memStore: inner}
	s.checks.Add(parties)
	return s
}

func (s *racingStore) URLOwnedByOther(ctx context.Context, url, owner string) (bool, error) {
	owned, err := s.memStore.URLOwnedByOther(ctx, url, owner)
	s.checks.Done()
	s.checks.Wait()
	return owned, err
}
