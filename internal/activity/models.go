package activity

import "time"

// Entry is an immutable, append-only activity log record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Changes is nil (omitted) when no field-level difference exists.
// - EntityName is captured at write time so it survives entity deletion.
// - Seq is assigned by the store in append order and breaks timestamp ties.
//
// Storage (Postgres):
// - Table activity_log, INSERT-only.
// - seq BIGSERIAL, idempotency_key UNIQUE.

type Entry struct {
	ID         string     `json:"id" db:"id"`
	Action     Action     `json:"action" db:"action"`
	EntityType EntityType `json:"entityType" db:"entity_type"`
	EntityID   string     `json:"entityId" db:"entity_id"`
	EntityName string     `json:"entityName" db:"entity_name"`
	AdminUser  string     `json:"adminUser" db:"admin_user"`
	Timestamp  time.Time  `json:"timestamp" db:"created_at"`
	Changes    []Change   `json:"changes,omitempty" db:"changes"`

	Seq            int64  `json:"-" db:"seq"`
	IdempotencyKey string `json:"-" db:"idempotency_key"`
}

// Change is one field-level difference. OldValue is nil for values that did not
// exist before; NewValue is nil for snapshot records of deleted entities.
type Change struct {
	Field    string  `json:"field"`
	OldValue *string `json:"oldValue,omitempty"`
	NewValue *string `json:"newValue,omitempty"`
}

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

type EntityType string

const (
	EntityTypeOwner    EntityType = "OWNER"
	EntityTypeProperty EntityType = "PROPERTY"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeOwner, EntityTypeProperty:
		return true
	default:
		return false
	}
}

// Mutation is the input to RecordMutation.
// AdminUser is mandatory; there is no fallback actor.
type Mutation struct {
	Action     Action
	EntityType EntityType
	EntityID   string
	EntityName string
	AdminUser  string
	Changes    []Change

	// IdempotencyKey makes retried appends safe. Generated when empty.
	IdempotencyKey string
}

// Statistics is derived from the full log on every call.
type Statistics struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	ThisWeek int `json:"thisWeek"`
	Creates  int `json:"creates"`
	Updates  int `json:"updates"`
	Deletes  int `json:"deletes"`
}

func strPtr(s string) *string { return &s }
