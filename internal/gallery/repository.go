package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gallery/service/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository stores galleries in the galleries table. Every query
// runs on the transaction carried by ctx when there is one.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository with the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert inserts g and sets its generated id.
func (r *PostgresRepository) Insert(ctx context.Context, g *Gallery) error {
	err := db.GetExecutor(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO galleries (image, title, description, last_update)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		g.Image, g.Title, g.Description, g.LastUpdate,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("insert gallery: %w", err)
	}
	return nil
}

// FindByID fetches a gallery by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Gallery, error) {
	g := &Gallery{}
	err := db.GetExecutor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, image, title, description, last_update
		 FROM galleries WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Image, &g.Title, &g.Description, &g.LastUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery by id: %w", err)
	}
	return g, nil
}

// FindAll returns every gallery ordered by id.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*Gallery, error) {
	rows, err := db.GetExecutor(ctx, r.pool).Query(ctx,
		`SELECT id, image, title, description, last_update
		 FROM galleries ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list galleries: %w", err)
	}
	defer rows.Close()

	galleries := make([]*Gallery, 0)
	for rows.Next() {
		g := &Gallery{}
		if err := rows.Scan(&g.ID, &g.Image, &g.Title, &g.Description, &g.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan gallery row: %w", err)
		}
		galleries = append(galleries, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery rows: %w", err)
	}
	return galleries, nil
}

// ExistsByID reports whether a gallery with id exists.
func (r *PostgresRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.GetExecutor(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM galleries WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check gallery existence: %w", err)
	}
	return exists, nil
}

// Update writes the editable fields of g.
func (r *PostgresRepository) Update(ctx context.Context, g *Gallery) error {
	tag, err := db.GetExecutor(ctx, r.pool).Exec(ctx,
		`UPDATE galleries SET title = $1, description = $2, last_update = $3
		 WHERE id = $4`,
		g.Title, g.Description, g.LastUpdate, g.ID,
	)
	if err != nil {
		return fmt.Errorf("update gallery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes the gallery row, returning ErrNotFound when no row was
// deleted. The stored image is not touched.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := db.GetExecutor(ctx, r.pool).Exec(ctx,
		`DELETE FROM galleries WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
