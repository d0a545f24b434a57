package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"property-registry/pkg/utils"

	sq "github.com/Masterminds/squirrel"
)

// NOTE: PostgresStore assumes the owners and properties tables from
// internal/migrations. properties.owner_id references owners(id) ON DELETE
// CASCADE; the owner delete still removes properties explicitly inside the
// same transaction so the removed rows can be returned to the caller.

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	ownerColumns    = []string{"id", "name", "address", "phone", "email", "created_at", "updated_at"}
	propertyColumns = []string{"id", "owner_id", "title", "description", "address", "map_link", "files", "created_at", "updated_at"}
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) ListOwners(ctx context.Context, search string) ([]Owner, error) {
	b := psql.Select(ownerColumns...).From("owners").OrderBy("created_at ASC", "id ASC")
	if q := strings.TrimSpace(search); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"email": pattern},
			sq.ILike{"phone": pattern},
			sq.ILike{"address": pattern},
		})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	out := make([]Owner, 0)
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetOwner(ctx context.Context, id string) (Owner, error) {
	q, args, err := psql.Select(ownerColumns...).From("owners").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Owner{}, err
	}
	o, err := scanOwner(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return Owner{}, mapError(err)
	}
	return o, nil
}

func (s *PostgresStore) InsertOwner(ctx context.Context, o Owner) error {
	q, args, err := psql.Insert("owners").
		Columns(ownerColumns...).
		Values(o.ID, o.Name, o.Address, o.Phone, o.Email, o.CreatedAt, o.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return mapError(err)
}

func (s *PostgresStore) UpdateOwner(ctx context.Context, o Owner) error {
	q, args, err := psql.Update("owners").
		Set("name", o.Name).
		Set("address", o.Address).
		Set("phone", o.Phone).
		Set("email", o.Email).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteOwner(ctx context.Context, id string) ([]Property, error) {
	var removed []Property
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the owner row so a concurrent property insert cannot slip in.
		q, args, err := psql.Select("id").From("owners").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return err
		}
		var locked string
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&locked); err != nil {
			return mapError(err)
		}

		q, args, err = psql.Delete("properties").
			Where(sq.Eq{"owner_id": id}).
			Suffix("RETURNING " + strings.Join(propertyColumns, ", ")).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("delete properties of owner %s: %w", id, err)
		}
		for rows.Next() {
			p, err := scanProperty(rows)
			if err != nil {
				_ = rows.Close()
				return err
			}
			removed = append(removed, p)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		q, args, err = psql.Delete("owners").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, q, args...)
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}
	sortProperties(removed)
	return removed, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context, f PropertyFilter) ([]Property, error) {
	b := psql.Select(propertyColumns...).From("properties").OrderBy("created_at ASC", "id ASC")
	if f.OwnerID != "" {
		b = b.Where(sq.Eq{"owner_id": f.OwnerID})
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.ILike{"address": pattern},
		})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	out := make([]Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (Property, error) {
	q, args, err := psql.Select(propertyColumns...).From("properties").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Property{}, err
	}
	p, err := scanProperty(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return Property{}, mapError(err)
	}
	return p, nil
}

func (s *PostgresStore) InsertProperty(ctx context.Context, p Property) error {
	files, err := marshalFiles(p.Files)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("properties").
		Columns(propertyColumns...).
		Values(p.ID, p.OwnerID, p.Title, p.Description, p.Address, p.MapLink, files, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return mapError(err)
}

func (s *PostgresStore) UpdateProperty(ctx context.Context, p Property) error {
	files, err := marshalFiles(p.Files)
	if err != nil {
		return err
	}
	q, args, err := psql.Update("properties").
		Set("owner_id", p.OwnerID).
		Set("title", p.Title).
		Set("description", p.Description).
		Set("address", p.Address).
		Set("map_link", p.MapLink).
		Set("files", files).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteProperty(ctx context.Context, id string) error {
	q, args, err := psql.Delete("properties").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) CountOwners(ctx context.Context) (int, error) {
	return s.count(ctx, "owners")
}

func (s *PostgresStore) CountProperties(ctx context.Context) (int, error) {
	return s.count(ctx, "properties")
}

func (s *PostgresStore) count(ctx context.Context, table string) (int, error) {
	q, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOwner(row rowScanner) (Owner, error) {
	var o Owner
	if err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Address,
		&o.Phone,
		&o.Email,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return Owner{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func scanProperty(row rowScanner) (Property, error) {
	var (
		p     Property
		files []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.MapLink,
		&files,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Property{}, err
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &p.Files); err != nil {
			return Property{}, fmt.Errorf("property %s unmarshal files: %w", p.ID, err)
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func marshalFiles(files []File) ([]byte, error) {
	if files == nil {
		files = []File{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("marshal files: %w", err)
	}
	return b, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapError translates driver errors into registry errors. nil stays nil.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if code, constraint, ok := utils.PgError(err); ok {
		switch code {
		case utils.SQLStateUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, constraint)
		case utils.SQLStateForeignKeyViolation, utils.SQLStateCheckViolation:
			return fmt.Errorf("%w: %s", ErrInvalidArgument, constraint)
		}
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
