package directory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donpacheco/nodeshot/internal/access"
)

// PGSource loads directory entries from PostgreSQL.
type PGSource struct {
	db *pgxpool.Pool
}

// NewPGSource constructs a PostgreSQL-backed Source.
func NewPGSource(db *pgxpool.Pool) *PGSource {
	return &PGSource{db: db}
}

// PublishedEntries returns summaries of every published node.
func (s *PGSource) PublishedEntries(ctx context.Context) ([]Entry, error) {
	query := `SELECT name, slug, layer_id, status,
			ST_Y(location::geometry), ST_X(location::geometry),
			is_published, access_level
		FROM nodes WHERE 1=1`
	clause, args := access.Unrestricted().Published().SQL(1)
	query += clause
	query += ` ORDER BY name`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var layerID *int64
		var rank int
		if err := rows.Scan(&e.Name, &e.Slug, &layerID, &e.Status, &e.Lat, &e.Lng, &e.IsPublished, &rank); err != nil {
			return nil, err
		}
		if layerID != nil {
			e.LayerID = *layerID
		}
		e.AccessLevel = access.Level(rank)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Source = (*PGSource)(nil)
