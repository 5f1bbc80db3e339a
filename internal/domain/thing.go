package domain

import "time"

// Well-known Thing properties. Everything else on a Thing (name,
// description, ...) is free-form and flows through untouched.
const (
	PropUUID         = "uuid"
	PropOwner        = "owner"
	PropCreated      = "created"
	PropLastModified = "lastModified"
)

// Thing is the single resource type managed by the service. Payload schemas
// leave its field set open, so it is modelled as a JSON object with typed
// accessors for the properties the lifecycle rules care about. Datetime
// leaves are time.Time after gateway validation.
type Thing map[string]any

// UUID returns the thing's uuid, or "" when unset.
func (t Thing) UUID() string {
	s, _ := t[PropUUID].(string)
	return s
}

// Owner returns the thing's owning organization id, or "" when unset.
func (t Thing) Owner() string {
	s, _ := t[PropOwner].(string)
	return s
}

// LastModified returns the thing's lastModified timestamp, or the zero time
// when unset.
func (t Thing) LastModified() time.Time {
	ts, _ := t[PropLastModified].(time.Time)
	return ts
}

// Clone returns a shallow copy. Repositories hand out clones so callers
// cannot mutate stored state in place.
func (t Thing) Clone() Thing {
	out := make(Thing, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
