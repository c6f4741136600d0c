package nodes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Repository defines persistence operations for nodes.
type Repository interface {
	List(ctx context.Context, filters ListFilters, scope access.Scope) ([]Node, int, error)
	ListInBounds(ctx context.Context, bounds Bounds, scope access.Scope) ([]Node, error)
	GetBySlug(ctx context.Context, slug string, scope access.Scope) (Node, error)
	Create(ctx context.Context, node Node) (Node, error)
	Update(ctx context.Context, id int64, node Node) error
	Delete(ctx context.Context, id int64) error
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const nodeColumns = `id, layer_id, owner_id, name, slug, description, status,
	ST_Y(location::geometry), ST_X(location::geometry), elevation, metadata,
	is_published, access_level, last_seen_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters, scope access.Scope) ([]Node, int, error) {
	where := ` FROM nodes WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.LayerID != nil {
		argCount++
		where += ` AND layer_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.LayerID)
	}
	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}

	clause, scopeArgs := scope.SQL(argCount + 1)
	where += clause
	args = append(args, scopeArgs...)
	argCount += len(scopeArgs)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + nodeColumns + where + ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, node)
	}
	return out, total, rows.Err()
}

func (r *repository) ListInBounds(ctx context.Context, bounds Bounds, scope access.Scope) ([]Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)`
	args := []any{bounds.SWLng, bounds.SWLat, bounds.NELng, bounds.NELat}

	clause, scopeArgs := scope.SQL(5)
	query += clause
	args = append(args, scopeArgs...)
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, rows.Err()
}

func (r *repository) GetBySlug(ctx context.Context, slug string, scope access.Scope) (Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE slug = $1`
	args := []any{slug}
	clause, scopeArgs := scope.SQL(2)
	query += clause
	args = append(args, scopeArgs...)

	node, err := scanNode(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Node{}, shared.ErrNotFound
		}
		return Node{}, err
	}
	return node, nil
}

func (r *repository) Create(ctx context.Context, node Node) (Node, error) {
	query := `INSERT INTO nodes (layer_id, owner_id, name, slug, description, status,
			location, elevation, metadata, is_published, access_level, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query,
		node.LayerID, node.OwnerID, node.Name, node.Slug, node.Description, node.Status,
		node.Lng, node.Lat, node.Elevation, toHstore(node.Metadata),
		node.IsPublished, int(node.AccessLevel), now, now,
	).Scan(&node.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Node{}, httpx.ErrDuplicate
		}
		return Node{}, err
	}
	node.LastSeenAt = &now
	node.CreatedAt = now
	node.UpdatedAt = now
	return node, nil
}

func (r *repository) Update(ctx context.Context, id int64, node Node) error {
	query := `UPDATE nodes SET name = $1, description = $2, status = $3,
		location = ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography,
		elevation = $6, metadata = $7, is_published = $8, access_level = $9, updated_at = $10
		WHERE id = $11`
	tag, err := r.db.Exec(ctx, query,
		node.Name, node.Description, node.Status,
		node.Lng, node.Lat, node.Elevation, toHstore(node.Metadata),
		node.IsPublished, int(node.AccessLevel), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkStale demotes active nodes not seen since the cutoff back to
// potential. Returns the number of demoted nodes.
func (r *repository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE nodes SET status = $1, updated_at = $2 WHERE status = $3 AND last_seen_at < $4`,
		StatusPotential, time.Now().UTC(), StatusActive, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNode(row pgx.Row) (Node, error) {
	var n Node
	var rank int
	var meta pgtype.Hstore
	err := row.Scan(&n.ID, &n.LayerID, &n.OwnerID, &n.Name, &n.Slug, &n.Description, &n.Status,
		&n.Lat, &n.Lng, &n.Elevation, &meta,
		&n.IsPublished, &rank, &n.LastSeenAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return Node{}, err
	}
	n.AccessLevel = access.Level(rank)
	n.Metadata = fromHstore(meta)
	return n, nil
}

func toHstore(m map[string]string) pgtype.Hstore {
	out := make(pgtype.Hstore, len(m))
	for k, v := range m {
		value := v
		out[k] = &value
	}
	return out
}

func fromHstore(h pgtype.Hstore) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
