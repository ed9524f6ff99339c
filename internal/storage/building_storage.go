package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (s *SQLStorage) CreateBuilding(ctx context.Context, name string) (Building, error) {
	b := Building{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO building (id, name, created_at_unix) VALUES (?, ?, ?)`,
		b.ID.String(), b.Name, b.CreatedAt.Unix())
	if err != nil {
		return Building{}, err
	}
	return b, nil
}

func (s *SQLStorage) ListBuildings(ctx context.Context) ([]Building, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, created_at_unix FROM building ORDER BY created_at_unix, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buildings := []Building{}
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

func (s *SQLStorage) GetBuilding(ctx context.Context, id uuid.UUID) (Building, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at_unix FROM building WHERE id = ?`, id.String())
	b, err := scanBuilding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Building{}, ErrNotFound
	}
	return b, err
}

// DeleteBuilding removes the building; its devices stay but are detached.
func (s *SQLStorage) DeleteBuilding(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM building WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLStorage) CountBuildings(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM building`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuilding(sc scanner) (Building, error) {
	var (
		b       Building
		created int64
	)
	if err := sc.Scan(&b.ID, &b.Name, &created); err != nil {
		return Building{}, err
	}
	b.CreatedAt = fromUnix(created)
	return b, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
