package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"docredact-backend/internal/fieldservice"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, p Profile) error {
	const query = `
INSERT INTO profiles (id, label, fields, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $5)
ON CONFLICT (label) DO NOTHING`

	fields, err := marshalFields(p.Fields)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, p.ID, p.Label, fields, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLabelExists
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Profile{}, ErrNotFound
	}
	const query = `
SELECT id, label, fields, created_at, updated_at
FROM profiles
WHERE id = $1::uuid
LIMIT 1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PGRepo) List(ctx context.Context) ([]Profile, error) {
	const query = `
SELECT id, label, fields, created_at, updated_at
FROM profiles
ORDER BY label ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, p Profile) error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return ErrNotFound
	}
	const query = `
UPDATE profiles
SET label = $1,
    fields = $2::jsonb,
    updated_at = $3
WHERE id = $4::uuid`

	fields, err := marshalFields(p.Fields)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, p.Label, fields, p.UpdatedAt, p.ID)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var fields sql.NullString
	if err := row.Scan(&p.ID, &p.Label, &fields, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.Fields = []fieldservice.Field{}
	if fields.Valid {
		if err := json.Unmarshal([]byte(fields.String), &p.Fields); err != nil {
			p.Fields = []fieldservice.Field{}
		}
	}
	return p, nil
}

func marshalFields(fields []fieldservice.Field) ([]byte, error) {
	if fields == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(fields)
}

// mapError turns a unique violation on label into ErrLabelExists.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrLabelExists
	}
	return err
}

var _ Repo = (*PGRepo)(nil)
