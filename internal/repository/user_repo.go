package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alanis-relay/internal/domain"
)

// UserRepository define el contrato de persistencia que el relay necesita
// sobre usuarios: leerlos y manipular su handle de conexion.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetConnectionHandle(ctx context.Context, id string) (string, error)
	SetConnectionHandle(ctx context.Context, id, handle string) error
	// ClearConnectionHandle limpia el handle solo si todavia vale expected.
	// Devuelve false si otra conexion ya lo reemplazo.
	ClearConnectionHandle(ctx context.Context, id, expected string) (bool, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, COALESCE(display_name, ''), COALESCE(connection_handle, ''), created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.DisplayName,
		&u.ConnectionHandle,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

func (r *PgUserRepository) GetConnectionHandle(ctx context.Context, id string) (string, error) {
	const query = `
		SELECT COALESCE(connection_handle, '')
		FROM users
		WHERE id = $1
	`
	var handle string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&handle); err != nil {
		return "", err
	}
	return handle, nil
}

func (r *PgUserRepository) SetConnectionHandle(ctx context.Context, id, handle string) error {
	const query = `
		UPDATE users
		SET connection_handle = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, handle)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) ClearConnectionHandle(ctx context.Context, id, expected string) (bool, error) {
	const query = `
		UPDATE users
		SET connection_handle = NULL
		WHERE id = $1 AND connection_handle = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
