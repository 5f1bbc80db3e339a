package domain

import (
	"fmt"
	"reflect"
	"time"

	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// RoleAdmin grants cross-organization access and the right to choose owners.
const RoleAdmin = "ROLE_ADMIN"

// RoleSet is a set of role names.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from a list of role names.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Intersects reports whether the set shares at least one role with roles.
func (s RoleSet) Intersects(roles []string) bool {
	for _, r := range roles {
		if _, ok := s[r]; ok {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller identity, constructed once per
// request from a schema-validated identity token and immutable thereafter.
type Principal struct {
	OrganizationID string
	Roles          RoleSet
}

// NewPrincipal builds a Principal. Roles is never nil.
func NewPrincipal(organizationID string, roles []string) *Principal {
	return &Principal{
		OrganizationID: organizationID,
		Roles:          NewRoleSet(roles...),
	}
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	_, ok := p.Roles[RoleAdmin]
	return ok
}

// CheckAuthorization fails with a FORBIDDEN error unless the principal holds
// at least one of the required roles. operation names the attempted action
// in the error message.
func (p *Principal) CheckAuthorization(requiredRoles []string, operation string) error {
	if !p.Roles.Intersects(requiredRoles) {
		return NewError(CodeForbidden, fmt.Sprintf("Principal is not authorized to %s", operation))
	}
	return nil
}

// CheckVisibility fails with errorCode unless the principal is an admin or
// owns the entity. The message is a not-found, never a forbidden, so callers
// cannot probe for entities outside their organization.
func (p *Principal) CheckVisibility(entity Thing, entityName, errorCode string) error {
	if p.IsAdmin() || entity.Owner() == p.OrganizationID {
		return nil
	}
	return NewError(errorCode, fmt.Sprintf("%s %q not found", entityName, entity.UUID()))
}

// CheckReadOnlyProperties compares old and new values for every property in
// readOnly and fails with errorCode when any differ. For non-admin
// principals the owner property is implicitly appended to the list.
func (p *Principal) CheckReadOnlyProperties(oldEntity, newEntity Thing, readOnly []string, errorCode string) error {
	props := readOnly
	if !p.IsAdmin() {
		props = append(append([]string{}, readOnly...), PropOwner)
	}
	var causes []string
	for _, prop := range props {
		oldValue, newValue := oldEntity[prop], newEntity[prop]
		if !valueEqual(oldValue, newValue) {
			causes = append(causes, fmt.Sprintf(
				"Cannot change read-only property %q from %q to %q",
				prop, formatValue(oldValue), formatValue(newValue),
			))
		}
	}
	if len(causes) > 0 {
		return NewError(errorCode, "Cannot change read-only properties", causes...)
	}
	return nil
}

// Owner resolves the owner for a new entity. Unset requests default to the
// principal's organization; only admins may choose another owner.
func (p *Principal) Owner(requested *string) (string, error) {
	if requested == nil {
		return p.OrganizationID, nil
	}
	if p.IsAdmin() {
		return *requested, nil
	}
	return "", NewError(CodeForbidden, "Principal is not authorized to choose an owner")
}

// OwnerFilter resolves the owner filter for a list operation. Admins may
// filter freely (nil means no filter); non-admins are always scoped to their
// own organization and may not request anything else.
func (p *Principal) OwnerFilter(requested *string) (*string, error) {
	if p.IsAdmin() {
		return requested, nil
	}
	if requested != nil {
		return nil, NewError(CodeForbidden, "Principal is not authorized to choose an owner filter")
	}
	org := p.OrganizationID
	return &org, nil
}

func valueEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return jsontime.Encode(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
