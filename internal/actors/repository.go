package actors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Repository defines persistence operations for users and groups.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	GroupsForUser(ctx context.Context, userID int64) ([]access.Group, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db}
}

const userColumns = `id, email, display_name, password_hash, is_superuser, is_active, created_at, updated_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GroupsForUser returns the privilege groups a user belongs to.
func (r *PGRepository) GroupsForUser(ctx context.Context, userID int64) ([]access.Group, error) {
	query := `SELECT g.id, g.name, g.access_level
		FROM groups g
		JOIN memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.access_level`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []access.Group
	for rows.Next() {
		var g access.Group
		var rank int
		if err := rows.Scan(&g.ID, &g.Name, &rank); err != nil {
			return nil, err
		}
		g.Level = access.Level(rank)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
