package registry

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	// ErrActivityNotRecorded means the entity write succeeded but its log
	// entry could not be stored. The returned entity is still valid.
	ErrActivityNotRecorded = errors.New("entity saved but activity was not recorded")
)

// Store persists owners and properties.
//
// DeleteOwner removes the owner together with its properties in one unit and
// returns the removed properties so the caller can log them.
type Store interface {
	ListOwners(ctx context.Context, search string) ([]Owner, error)
	GetOwner(ctx context.Context, id string) (Owner, error)
	InsertOwner(ctx context.Context, o Owner) error
	UpdateOwner(ctx context.Context, o Owner) error
	DeleteOwner(ctx context.Context, id string) ([]Property, error)

	ListProperties(ctx context.Context, f PropertyFilter) ([]Property, error)
	GetProperty(ctx context.Context, id string) (Property, error)
	InsertProperty(ctx context.Context, p Property) error
	UpdateProperty(ctx context.Context, p Property) error
	DeleteProperty(ctx context.Context, id string) error

	CountOwners(ctx context.Context) (int, error)
	CountProperties(ctx context.Context) (int, error)
}
