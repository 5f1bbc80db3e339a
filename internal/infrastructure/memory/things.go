// Package memory provides a volatile, mutex-guarded thing store. It backs
// the local development server and tests; production deployments swap in
// the dynamo implementation without touching the core.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// ThingRepo is an in-memory thing store keyed by uuid.
type ThingRepo struct {
	mu   sync.RWMutex
	data map[string]domain.Thing
}

func NewThingRepo() *ThingRepo {
	return &ThingRepo{data: make(map[string]domain.Thing)}
}

// NewSeededThingRepo returns a store preloaded with three fixtures across
// two organizations, handy for local runs and integration-style tests.
func NewSeededThingRepo() *ThingRepo {
	now := jsontime.Now()
	repo := NewThingRepo()
	for _, t := range []domain.Thing{
		{"uuid": "001", "owner": "ORG001", "name": "Thing1", "description": "Thing 001", "created": now, "lastModified": now},
		{"uuid": "002", "owner": "ORG002", "name": "Thing2", "description": "Thing 002", "created": now, "lastModified": now},
		{"uuid": "003", "owner": "ORG001", "name": "Thing2", "description": "Thing 003", "created": now, "lastModified": now},
	} {
		repo.data[t.UUID()] = t
	}
	return repo
}

func (r *ThingRepo) Create(ctx context.Context, t domain.Thing) (domain.Thing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[t.UUID()] = t.Clone()
	return t, nil
}

func (r *ThingRepo) Get(ctx context.Context, uuid string) (domain.Thing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.data[uuid]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (r *ThingRepo) Update(ctx context.Context, t domain.Thing) (domain.Thing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[t.UUID()] = t.Clone()
	return t, nil
}

func (r *ThingRepo) Delete(ctx context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, uuid)
	return nil
}

func (r *ThingRepo) List(ctx context.Context, ownerFilter *string) ([]domain.Thing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	things := make([]domain.Thing, 0, len(r.data))
	for _, t := range r.data {
		if ownerFilter == nil || t.Owner() == *ownerFilter {
			things = append(things, t.Clone())
		}
	}
	// Stable order so repeated lists without intervening writes are identical.
	sort.Slice(things, func(i, j int) bool { return things[i].UUID() < things[j].UUID() })
	return things, nil
}
