package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// NOTE: PostgresRepo assumes the activity_log table from internal/migrations:
// - seq BIGSERIAL gives append order for the timestamp tie-break
// - idempotency_key UNIQUE makes retried appends a no-op
// - no UPDATE/DELETE statements are ever issued against it

const activityTable = "activity_log"

var activityColumns = []string{
	"id", "seq", "action", "entity_type", "entity_id", "entity_name",
	"admin_user", "changes", "idempotency_key", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	var changes []byte
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return Entry{}, fmt.Errorf("activity marshal changes: %w", err)
		}
		changes = b
	}

	q, args, err := psql.Insert(activityTable).
		Columns("id", "action", "entity_type", "entity_id", "entity_name", "admin_user", "changes", "idempotency_key", "created_at").
		Values(e.ID, string(e.Action), string(e.EntityType), e.EntityID, e.EntityName, e.AdminUser, changes, e.IdempotencyKey, e.Timestamp).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING RETURNING seq").
		ToSql()
	if err != nil {
		return Entry{}, err
	}

	err = r.db.QueryRowContext(ctx, q, args...).Scan(&e.Seq)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("activity append %s: %w", e.ID, err)
	}

	// Conflict: the key was stored by an earlier attempt.
	existing, err := r.findByIdempotencyKey(ctx, e.IdempotencyKey)
	if err != nil {
		return Entry{}, fmt.Errorf("activity append %s: %w", e.ID, err)
	}
	return existing, nil
}

func (r *PostgresRepo) findByIdempotencyKey(ctx context.Context, key string) (Entry, error) {
	q, args, err := psql.Select(activityColumns...).
		From(activityTable).
		Where(sq.Eq{"idempotency_key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return Entry{}, err
	}
	return scanEntry(r.db.QueryRowContext(ctx, q, args...))
}

func (r *PostgresRepo) Count(ctx context.Context, f Filter) (int, error) {
	q, args, err := applyFilter(psql.Select("COUNT(*)").From(activityTable), f).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("activity count: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter, offset, limit int) ([]Entry, error) {
	b := applyFilter(psql.Select(activityColumns...).From(activityTable), f).
		OrderBy("created_at DESC", "seq ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return r.query(ctx, b)
}

func (r *PostgresRepo) All(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, psql.Select(activityColumns...).From(activityTable).OrderBy("seq ASC"))
}

func (r *PostgresRepo) query(ctx context.Context, b sq.SelectBuilder) ([]Entry, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("activity list: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func applyFilter(b sq.SelectBuilder, f Filter) sq.SelectBuilder {
	if f.Action != "" {
		b = b.Where(sq.Eq{"action": string(f.Action)})
	}
	if f.EntityType != "" {
		b = b.Where(sq.Eq{"entity_type": string(f.EntityType)})
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"entity_name": pattern},
			sq.ILike{"admin_user": pattern},
		})
	}
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside ILIKE (default escape char '\').
func escapeLike(s string) string { return likeEscaper.Replace(s) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e       Entry
		changes []byte
		created time.Time
	)
	if err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Action,
		&e.EntityType,
		&e.EntityID,
		&e.EntityName,
		&e.AdminUser,
		&changes,
		&e.IdempotencyKey,
		&created,
	); err != nil {
		return Entry{}, err
	}
	e.Timestamp = created.UTC()
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return Entry{}, fmt.Errorf("activity %s unmarshal changes: %w", e.ID, err)
		}
		if len(e.Changes) == 0 {
			e.Changes = nil
		}
	}
	return e, nil
}
