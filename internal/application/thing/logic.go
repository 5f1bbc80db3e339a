package thing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/pkg/id"
	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// Repository is the minimal interface the service requires from a thing
// store. Get returns (nil, nil) for an unknown uuid; deciding that absence
// is an error belongs to the service, not the store. List filters by owner
// when ownerFilter is non-nil. Implementations provide atomic per-key
// operations; cross-request coordination is not this layer's concern.
type Repository interface {
	Create(ctx context.Context, t domain.Thing) (domain.Thing, error)
	Get(ctx context.Context, uuid string) (domain.Thing, error)
	Update(ctx context.Context, t domain.Thing) (domain.Thing, error)
	Delete(ctx context.Context, uuid string) error
	List(ctx context.Context, ownerFilter *string) ([]domain.Thing, error)
}

// Service implements the thing lifecycle rules: creation defaults,
// uniqueness, visibility, read-only field protection and timestamp
// maintenance. Authorization lives in Authorizer, one layer up.
type Service struct {
	repo Repository
	log  zerolog.Logger

	// now is swapped out by tests.
	now func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: jsontime.Now}
}

// Create persists a new thing. A caller-supplied uuid must not collide with
// an existing one; absent a uuid, a fresh v4 UUID is generated. created and
// lastModified are both set to the same instant.
func (s *Service) Create(ctx context.Context, principal *domain.Principal, t domain.Thing) (domain.Thing, error) {
	if uid := t.UUID(); uid != "" {
		existing, err := s.repo.Get(ctx, uid)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.NewError(domain.CodeThingAlreadyExists,
				fmt.Sprintf("Thing %q already exists", uid))
		}
	} else {
		t[domain.PropUUID] = id.New()
	}
	now := s.now()
	t[domain.PropCreated] = now
	t[domain.PropLastModified] = now
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("uuid", created.UUID()).Str("owner", created.Owner()).Msg("thing created")
	return created, nil
}

// Get returns the thing with the given uuid, subject to visibility.
func (s *Service) Get(ctx context.Context, principal *domain.Principal, uuid string) (domain.Thing, error) {
	return s.getAndCheck(ctx, principal, uuid)
}

// Update replaces the mutable fields of an existing thing. Read-only
// properties are checked before any store mutation; lastModified always
// strictly increases.
func (s *Service) Update(ctx context.Context, principal *domain.Principal, uuid string, newThing domain.Thing) (domain.Thing, error) {
	old, err := s.getAndCheck(ctx, principal, uuid)
	if err != nil {
		return nil, err
	}
	readOnly := []string{domain.PropUUID, domain.PropCreated, domain.PropLastModified}
	if err := principal.CheckReadOnlyProperties(old, newThing, readOnly, domain.CodeThingUnprocessable); err != nil {
		return nil, err
	}
	lastModified := s.now()
	if !lastModified.After(old.LastModified()) {
		lastModified = old.LastModified().Add(time.Millisecond)
	}
	newThing[domain.PropLastModified] = lastModified
	updated, err := s.repo.Update(ctx, newThing)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("uuid", uuid).Msg("thing updated")
	return updated, nil
}

// Delete removes an existing thing, subject to visibility.
func (s *Service) Delete(ctx context.Context, principal *domain.Principal, uuid string) error {
	if _, err := s.getAndCheck(ctx, principal, uuid); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, uuid); err != nil {
		return err
	}
	s.log.Info().Str("uuid", uuid).Msg("thing deleted")
	return nil
}

// List returns things matching ownerFilter. Visibility is not re-checked
// here: the authorizer already resolved the filter so non-admins can only
// ever reach their own organization's scope.
func (s *Service) List(ctx context.Context, principal *domain.Principal, ownerFilter *string) ([]domain.Thing, error) {
	return s.repo.List(ctx, ownerFilter)
}

func (s *Service) getAndCheck(ctx context.Context, principal *domain.Principal, uuid string) (domain.Thing, error) {
	t, err := s.repo.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewError(domain.CodeThingNotFound, fmt.Sprintf("Thing %q not found", uuid))
	}
	if err := principal.CheckVisibility(t, "Thing", domain.CodeThingNotFound); err != nil {
		return nil, err
	}
	return t, nil
}
