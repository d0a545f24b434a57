package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"property-registry/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the activity log.
//
// It MUST be append-only. No Update/Delete methods are provided.
// Append must serialise concurrent writers so Seq follows append order, and
// must treat a repeated IdempotencyKey as a no-op returning the stored entry.
type Repository interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Count(ctx context.Context, f Filter) (int, error)
	// List returns matching entries newest first (Timestamp DESC, Seq ASC).
	List(ctx context.Context, f Filter, offset, limit int) ([]Entry, error)
	All(ctx context.Context) ([]Entry, error)
}

var (
	ErrInvalidMutation = errors.New("activity: invalid mutation")
	// ErrLogWrite means the entry could not be stored. The triggering entity
	// mutation may already have been applied.
	ErrLogWrite = errors.New("activity: log write failed")
)

// Options tunes the Tracker. Zero values pick defaults.
type Options struct {
	PageSize      int
	AppendRetries int
	Location      *time.Location
}

// Tracker records entity mutations and serves the log read side.
type Tracker struct {
	repo    Repository
	clock   func() time.Time
	loc     *time.Location
	size    int
	retries int
}

func NewTracker(repo Repository, opts Options) *Tracker {
	t := &Tracker{
		repo:    repo,
		clock:   time.Now,
		loc:     opts.Location,
		size:    normalizePageSize(opts.PageSize),
		retries: opts.AppendRetries,
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	if t.retries < 0 {
		t.retries = 0
	}
	return t
}

// WithClock replaces the time source. Intended for tests.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

func (t *Tracker) Location() *time.Location { return t.loc }

// RecordMutation appends one entry for a mutation that has already been
// applied. Call it exactly once per successful create/update/delete.
func (t *Tracker) RecordMutation(ctx context.Context, m Mutation) (Entry, error) {
	if t.repo == nil {
		return Entry{}, fmt.Errorf("%w: repository not configured", ErrLogWrite)
	}
	if !m.Action.Valid() || !m.EntityType.Valid() {
		return Entry{}, ErrInvalidMutation
	}
	if m.EntityID == "" {
		return Entry{}, fmt.Errorf("%w: entity id required", ErrInvalidMutation)
	}
	if m.AdminUser == "" {
		return Entry{}, fmt.Errorf("%w: actor required", ErrInvalidMutation)
	}

	e := Entry{
		ID:             uuid.NewString(),
		Action:         m.Action,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		EntityName:     m.EntityName,
		AdminUser:      m.AdminUser,
		Timestamp:      t.clock().UTC(),
		IdempotencyKey: m.IdempotencyKey,
	}
	if len(m.Changes) > 0 {
		e.Changes = append([]Change(nil), m.Changes...)
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = uuid.NewString()
	}

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Entry{}, fmt.Errorf("%w: %w", ErrLogWrite, err)
		}
		stored, err := t.repo.Append(ctx, e)
		if err == nil {
			return stored, nil
		}
		lastErr = err
		logger.From(ctx).Warn("activity append failed",
			"attempt", attempt+1,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"err", err,
		)
	}
	return Entry{}, fmt.Errorf("%w: %w", ErrLogWrite, lastErr)
}

// QueryLog returns one page of the filtered log, newest first.
// page is clamped into range; pageSize <= 0 uses the configured default.
func (t *Tracker) QueryLog(ctx context.Context, f Filter, page, pageSize int) (Page, error) {
	if t.repo == nil {
		return Page{}, errors.New("activity: repository not configured")
	}
	f = f.normalized()
	size := t.size
	if pageSize > 0 {
		size = normalizePageSize(pageSize)
	}

	total, err := t.repo.Count(ctx, f)
	if err != nil {
		return Page{}, err
	}
	page = clampPage(page, total, size)
	if total == 0 {
		return newPage(nil, 0, page, size), nil
	}

	entries, err := t.repo.List(ctx, f, (page-1)*size, size)
	if err != nil {
		return Page{}, err
	}
	return newPage(entries, total, page, size), nil
}

// Recent returns the n newest entries.
func (t *Tracker) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	p, err := t.QueryLog(ctx, Filter{}, 1, n)
	if err != nil {
		return nil, err
	}
	return p.Entries, nil
}

// ComputeStatistics reads the whole log and aggregates it. Nothing is cached.
func (t *Tracker) ComputeStatistics(ctx context.Context) (Statistics, error) {
	if t.repo == nil {
		return Statistics{}, errors.New("activity: repository not configured")
	}
	all, err := t.repo.All(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(all, t.clock(), t.loc), nil
}
