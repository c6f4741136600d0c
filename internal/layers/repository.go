package layers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/db"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Repository defines persistence operations for layers.
type Repository interface {
	List(ctx context.Context, scope access.Scope) ([]Layer, error)
	GetBySlug(ctx context.Context, slug string, scope access.Scope) (Layer, error)
	Create(ctx context.Context, layer Layer) (Layer, error)
	Update(ctx context.Context, id int64, layer Layer) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const layerColumns = `id, name, slug, description, ST_Y(center::geometry), ST_X(center::geometry), zoom, is_published, access_level, created_at, updated_at`

func (r *repository) List(ctx context.Context, scope access.Scope) ([]Layer, error) {
	query := `SELECT ` + layerColumns + ` FROM layers WHERE 1=1`
	clause, args := scope.SQL(1)
	query += clause
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Layer
	for rows.Next() {
		layer, err := scanLayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, layer)
	}
	return out, rows.Err()
}

func (r *repository) GetBySlug(ctx context.Context, slug string, scope access.Scope) (Layer, error) {
	query := `SELECT ` + layerColumns + ` FROM layers WHERE slug = $1`
	args := []any{slug}
	clause, scopeArgs := scope.SQL(2)
	query += clause
	args = append(args, scopeArgs...)

	layer, err := scanLayer(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Layer{}, shared.ErrNotFound
		}
		return Layer{}, err
	}
	return layer, nil
}

func (r *repository) Create(ctx context.Context, layer Layer) (Layer, error) {
	query := `INSERT INTO layers (name, slug, description, center, zoom, is_published, access_level, created_at, updated_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9, $9)
		RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query,
		layer.Name, layer.Slug, layer.Description,
		layer.CenterLng, layer.CenterLat, layer.Zoom,
		layer.IsPublished, int(layer.AccessLevel), now,
	).Scan(&layer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Layer{}, httpx.ErrDuplicate
		}
		return Layer{}, err
	}
	layer.CreatedAt = now
	layer.UpdatedAt = now
	return layer, nil
}

func (r *repository) Update(ctx context.Context, id int64, layer Layer) error {
	query := `UPDATE layers SET name = $1, description = $2,
		center = ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography,
		zoom = $5, is_published = $6, access_level = $7, updated_at = $8
		WHERE id = $9`
	tag, err := r.db.Exec(ctx, query,
		layer.Name, layer.Description,
		layer.CenterLng, layer.CenterLat, layer.Zoom,
		layer.IsPublished, int(layer.AccessLevel), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a layer and unpublishes its nodes in one transaction.
// An orphaned node must not stay visible on the map.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE nodes SET is_published = FALSE, layer_id = NULL, updated_at = $1 WHERE layer_id = $2`,
			time.Now().UTC(), id,
		)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM layers WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func scanLayer(row pgx.Row) (Layer, error) {
	var l Layer
	var rank int
	err := row.Scan(&l.ID, &l.Name, &l.Slug, &l.Description, &l.CenterLat, &l.CenterLng, &l.Zoom, &l.IsPublished, &rank, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Layer{}, err
	}
	l.AccessLevel = access.Level(rank)
	return l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
