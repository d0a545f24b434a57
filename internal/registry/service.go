package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"property-registry/internal/activity"
	"property-registry/pkg/logger"

	"github.com/google/uuid"
)

// Service applies owner and property mutations and records each one in the
// activity log.
//
// Write invariants:
// - The entity write happens first; the log entry is appended only after it succeeds
// - Exactly one entry per successful mutation (plus one per cascaded property delete)
// - A failed log append never rolls back the entity; the caller gets the
//   entity together with ErrActivityNotRecorded
type Service struct {
	store   Store
	tracker *activity.Tracker
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, tracker *activity.Tracker) *Service {
	return &Service{store: store, tracker: tracker, clock: time.Now}
}

// DisplayName implements activity.NameResolver against the live store.
func (s *Service) DisplayName(ctx context.Context, t activity.EntityType, id string) (string, error) {
	switch t {
	case activity.EntityTypeOwner:
		o, err := s.store.GetOwner(ctx, id)
		if err != nil {
			return "", err
		}
		return o.Name, nil
	case activity.EntityTypeProperty:
		p, err := s.store.GetProperty(ctx, id)
		if err != nil {
			return "", err
		}
		return p.Title, nil
	default:
		return "", fmt.Errorf("%w: entity type %q", ErrInvalidArgument, t)
	}
}

func (s *Service) diffOptions(resolver activity.NameResolver) activity.DiffOptions {
	if resolver == nil {
		resolver = s
	}
	return activity.DiffOptions{
		References: map[string]activity.EntityType{FieldOwnerID: activity.EntityTypeOwner},
		Resolver:   resolver,
	}
}

func (s *Service) now() time.Time { return s.clock().UTC() }

// ---- Owners ----

func (s *Service) ListOwners(ctx context.Context, search string) ([]Owner, error) {
	return s.store.ListOwners(ctx, search)
}

func (s *Service) GetOwner(ctx context.Context, id string) (Owner, error) {
	if strings.TrimSpace(id) == "" {
		return Owner{}, ErrInvalidArgument
	}
	return s.store.GetOwner(ctx, id)
}

func (s *Service) CreateOwner(ctx context.Context, actor string, in OwnerInput) (Owner, error) {
	if err := requireActor(actor); err != nil {
		return Owner{}, err
	}
	in.normalize()
	if in.Name == "" {
		return Owner{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	now := s.now()
	o := Owner{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertOwner(ctx, o); err != nil {
		return Owner{}, err
	}

	return o, s.record(ctx, activity.Mutation{
		Action:     activity.ActionCreate,
		EntityType: activity.EntityTypeOwner,
		EntityID:   o.ID,
		EntityName: o.Name,
		AdminUser:  actor,
	})
}

// UpdateOwner applies patch. An update that changes nothing is still logged,
// with no changes attached.
func (s *Service) UpdateOwner(ctx context.Context, actor, id string, patch OwnerPatch) (Owner, error) {
	if err := requireActor(actor); err != nil {
		return Owner{}, err
	}
	old, err := s.GetOwner(ctx, id)
	if err != nil {
		return Owner{}, err
	}

	updated := old
	patch.apply(&updated)
	if updated.Name == "" {
		return Owner{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	updated.UpdatedAt = s.now()
	if err := s.store.UpdateOwner(ctx, updated); err != nil {
		return Owner{}, err
	}

	changes := activity.Diff(ctx, old.Snapshot(), patch.fields(), s.diffOptions(nil))
	return updated, s.record(ctx, activity.Mutation{
		Action:     activity.ActionUpdate,
		EntityType: activity.EntityTypeOwner,
		EntityID:   updated.ID,
		EntityName: updated.Name,
		AdminUser:  actor,
		Changes:    changes,
	})
}

// DeleteOwner removes the owner and every property it holds. The owner entry
// is logged first, then one DELETE entry per removed property.
func (s *Service) DeleteOwner(ctx context.Context, actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	old, err := s.GetOwner(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteOwner(ctx, id)
	if err != nil {
		return err
	}

	// The owner row is gone; resolve ownerId from the captured snapshot.
	opts := s.diffOptions(staticNames{activity.EntityTypeOwner: {old.ID: old.Name}})

	var errs []error
	if err := s.record(ctx, activity.Mutation{
		Action:     activity.ActionDelete,
		EntityType: activity.EntityTypeOwner,
		EntityID:   old.ID,
		EntityName: old.Name,
		AdminUser:  actor,
		Changes:    activity.SnapshotChanges(ctx, old.Snapshot(), ownerSnapshotFields, opts),
	}); err != nil {
		errs = append(errs, err)
	}
	for _, p := range removed {
		if err := s.record(ctx, propertyDeleted(ctx, actor, p, opts)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---- Properties ----

func (s *Service) ListProperties(ctx context.Context, f PropertyFilter) ([]Property, error) {
	return s.store.ListProperties(ctx, f)
}

func (s *Service) GetProperty(ctx context.Context, id string) (Property, error) {
	if strings.TrimSpace(id) == "" {
		return Property{}, ErrInvalidArgument
	}
	return s.store.GetProperty(ctx, id)
}

func (s *Service) CreateProperty(ctx context.Context, actor string, in PropertyInput) (Property, error) {
	if err := requireActor(actor); err != nil {
		return Property{}, err
	}
	in.normalize()
	if in.Title == "" {
		return Property{}, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if err := s.requireOwner(ctx, in.OwnerID); err != nil {
		return Property{}, err
	}

	now := s.now()
	p := Property{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		MapLink:     in.MapLink,
		Files:       append([]File{}, in.Files...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertProperty(ctx, p); err != nil {
		return Property{}, err
	}

	return p, s.record(ctx, activity.Mutation{
		Action:     activity.ActionCreate,
		EntityType: activity.EntityTypeProperty,
		EntityID:   p.ID,
		EntityName: p.Title,
		AdminUser:  actor,
	})
}

func (s *Service) UpdateProperty(ctx context.Context, actor, id string, patch PropertyPatch) (Property, error) {
	if err := requireActor(actor); err != nil {
		return Property{}, err
	}
	old, err := s.GetProperty(ctx, id)
	if err != nil {
		return Property{}, err
	}

	updated := old
	patch.apply(&updated)
	if updated.Title == "" {
		return Property{}, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if updated.OwnerID != old.OwnerID {
		if err := s.requireOwner(ctx, updated.OwnerID); err != nil {
			return Property{}, err
		}
	}
	updated.UpdatedAt = s.now()
	if err := s.store.UpdateProperty(ctx, updated); err != nil {
		return Property{}, err
	}

	changes := activity.Diff(ctx, old.Snapshot(), patch.fields(), s.diffOptions(nil))
	return updated, s.record(ctx, activity.Mutation{
		Action:     activity.ActionUpdate,
		EntityType: activity.EntityTypeProperty,
		EntityID:   updated.ID,
		EntityName: updated.Title,
		AdminUser:  actor,
		Changes:    changes,
	})
}

func (s *Service) DeleteProperty(ctx context.Context, actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	old, err := s.GetProperty(ctx, id)
	if err != nil {
		return err
	}
	m := propertyDeleted(ctx, actor, old, s.diffOptions(nil))

	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, m)
}

// ---- Dashboard ----

// Dashboard summarises entity counts, today's log volume and the latest
// entries.
func (s *Service) Dashboard(ctx context.Context, recent int) (Dashboard, error) {
	if recent <= 0 {
		recent = activity.DefaultRecent
	}
	owners, err := s.store.CountOwners(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	properties, err := s.store.CountProperties(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	stats, err := s.tracker.ComputeStatistics(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	entries, err := s.tracker.Recent(ctx, recent)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Owners:        owners,
		Properties:    properties,
		TodayActivity: stats.Today,
		Recent:        entries,
	}, nil
}

// ---- helpers ----

func (s *Service) record(ctx context.Context, m activity.Mutation) error {
	if _, err := s.tracker.RecordMutation(ctx, m); err != nil {
		logger.From(ctx).Warn("activity not recorded",
			"action", m.Action,
			"entity_type", m.EntityType,
			"entity_id", m.EntityID,
			"err", err,
		)
		return fmt.Errorf("%w: %w", ErrActivityNotRecorded, err)
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: ownerId is required", ErrInvalidArgument)
	}
	if _, err := s.store.GetOwner(ctx, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: owner %s does not exist", ErrInvalidArgument, ownerID)
		}
		return err
	}
	return nil
}

func propertyDeleted(ctx context.Context, actor string, p Property, opts activity.DiffOptions) activity.Mutation {
	return activity.Mutation{
		Action:     activity.ActionDelete,
		EntityType: activity.EntityTypeProperty,
		EntityID:   p.ID,
		EntityName: p.Title,
		AdminUser:  actor,
		Changes:    activity.SnapshotChanges(ctx, p.Snapshot(), propertySnapshotFields, opts),
	}
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return fmt.Errorf("%w: acting admin is required", ErrInvalidArgument)
	}
	return nil
}

// staticNames resolves names from a fixed table, for entities that no longer
// exist in the store.
type staticNames map[activity.EntityType]map[string]string

func (n staticNames) DisplayName(_ context.Context, t activity.EntityType, id string) (string, error) {
	if name, ok := n[t][id]; ok {
		return name, nil
	}
	return "", ErrNotFound
}
