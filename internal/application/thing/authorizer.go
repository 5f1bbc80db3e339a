package thing

import (
	"context"

	"github.com/nsplab/thing-service/internal/domain"
)

// RoleThingUser grants access to thing operations within the caller's own
// organization.
const RoleThingUser = "ROLE_THING_USER"

var thingRoles = []string{domain.RoleAdmin, RoleThingUser}

// Authorizer is the role-based gate in front of Service: one method per
// operation, each checking authorization (and, where relevant, resolving
// ownership) before delegating. No business rules live here.
type Authorizer struct {
	svc *Service
}

func NewAuthorizer(svc *Service) *Authorizer {
	return &Authorizer{svc: svc}
}

func (a *Authorizer) Create(ctx context.Context, principal *domain.Principal, t domain.Thing) (domain.Thing, error) {
	if err := principal.CheckAuthorization(thingRoles, "create things"); err != nil {
		return nil, err
	}
	var requested *string
	if owner := t.Owner(); owner != "" {
		requested = &owner
	}
	owner, err := principal.Owner(requested)
	if err != nil {
		return nil, err
	}
	t[domain.PropOwner] = owner
	return a.svc.Create(ctx, principal, t)
}

func (a *Authorizer) Get(ctx context.Context, principal *domain.Principal, uuid string) (domain.Thing, error) {
	if err := principal.CheckAuthorization(thingRoles, "get things"); err != nil {
		return nil, err
	}
	return a.svc.Get(ctx, principal, uuid)
}

func (a *Authorizer) Update(ctx context.Context, principal *domain.Principal, uuid string, t domain.Thing) (domain.Thing, error) {
	if err := principal.CheckAuthorization(thingRoles, "update things"); err != nil {
		return nil, err
	}
	return a.svc.Update(ctx, principal, uuid, t)
}

func (a *Authorizer) Delete(ctx context.Context, principal *domain.Principal, uuid string) error {
	if err := principal.CheckAuthorization(thingRoles, "delete things"); err != nil {
		return err
	}
	return a.svc.Delete(ctx, principal, uuid)
}

func (a *Authorizer) List(ctx context.Context, principal *domain.Principal, owner *string) ([]domain.Thing, error) {
	if err := principal.CheckAuthorization(thingRoles, "list things"); err != nil {
		return nil, err
	}
	filter, err := principal.OwnerFilter(owner)
	if err != nil {
		return nil, err
	}
	return a.svc.List(ctx, principal, filter)
}
