package activity

import (
	"context"
	"fmt"
	"reflect"
)

// Snapshot is the complete state of an entity keyed by field name.
type Snapshot map[string]any

// FieldValue is one proposed field update.
type FieldValue struct {
	Field string
	Value any
}

// Patch is an ordered partial update. Diff output follows this order.
type Patch []FieldValue

// Set appends field, or replaces its value in place if already present.
func (p Patch) Set(field string, v any) Patch {
	for i := range p {
		if p[i].Field == field {
			p[i].Value = v
			return p
		}
	}
	return append(p, FieldValue{Field: field, Value: v})
}

// NameResolver resolves the display label of a referenced entity.
// Any error (including not found) makes the diff fall back to the raw id.
type NameResolver interface {
	DisplayName(ctx context.Context, t EntityType, id string) (string, error)
}

// FieldFiles is never diffed.
const FieldFiles = "files"

// DiffOptions configures exclusions and foreign-key resolution.
type DiffOptions struct {
	// Exclude lists fields that never appear in output. nil means {files}.
	Exclude map[string]struct{}

	// References maps foreign-key fields to the entity type they point at.
	References map[string]EntityType

	Resolver NameResolver
}

func (o DiffOptions) excluded(field string) bool {
	if o.Exclude == nil {
		return field == FieldFiles
	}
	_, ok := o.Exclude[field]
	return ok
}

func (o DiffOptions) display(ctx context.Context, field, raw string) string {
	ref, ok := o.References[field]
	if !ok || o.Resolver == nil || raw == "" {
		return raw
	}
	name, err := o.Resolver.DisplayName(ctx, ref, raw)
	if err != nil || name == "" {
		return raw
	}
	return name
}

// Diff returns the field-level changes patch would apply to old.
//
// Fields are visited in patch order; a field repeated in patch is only
// considered at its first position. Equal values and excluded fields are
// skipped. The result is never nil; callers drop an empty result before
// logging.
func Diff(ctx context.Context, old Snapshot, patch Patch, opts DiffOptions) []Change {
	out := make([]Change, 0, len(patch))
	seen := make(map[string]struct{}, len(patch))
	for _, fv := range patch {
		if _, dup := seen[fv.Field]; dup {
			continue
		}
		seen[fv.Field] = struct{}{}

		if opts.excluded(fv.Field) {
			continue
		}
		prev := old[fv.Field]
		if valuesEqual(prev, fv.Value) {
			continue
		}
		out = append(out, Change{
			Field:    fv.Field,
			OldValue: strPtr(opts.display(ctx, fv.Field, stringify(prev))),
			NewValue: strPtr(opts.display(ctx, fv.Field, stringify(fv.Value))),
		})
	}
	return out
}

// SnapshotChanges records the old value of each listed field, for entries
// describing a deleted entity. Excluded fields are skipped.
func SnapshotChanges(ctx context.Context, old Snapshot, fields []string, opts DiffOptions) []Change {
	out := make([]Change, 0, len(fields))
	for _, f := range fields {
		if opts.excluded(f) {
			continue
		}
		v, ok := old[f]
		if !ok {
			continue
		}
		out = append(out, Change{Field: f, OldValue: strPtr(opts.display(ctx, f, stringify(v)))})
	}
	return out
}

// valuesEqual is strict: an absent field differs from an empty string.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
