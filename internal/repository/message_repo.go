package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alanis-relay/internal/domain"
)

// MessageRepository persiste el log de mensajes directos.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	// UpdateBody devuelve pgx.ErrNoRows si el id no existe o participantID no
	// es emisor ni receptor.
	UpdateBody(ctx context.Context, id, participantID, body string, updatedAt time.Time) (domain.Message, error)
	// Delete devuelve pgx.ErrNoRows si no habia nada que borrar.
	Delete(ctx context.Context, id, participantID string) (domain.Message, error)
	// ListConversation devuelve hasta limit mensajes anteriores a before en
	// orden (created_at, id) ascendente.
	ListConversation(ctx context.Context, userA, userB string, before domain.HistoryCursor, limit int) ([]domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO direct_messages (id, sender_id, recipient_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SenderID,
		message.RecipientID,
		message.Body,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) UpdateBody(ctx context.Context, id, participantID, body string, updatedAt time.Time) (domain.Message, error) {
	const query = `
		UPDATE direct_messages
		SET body = $3, updated_at = $4
		WHERE id = $1 AND (sender_id = $2 OR recipient_id = $2)
		RETURNING id, sender_id, recipient_id, body, created_at, updated_at
	`
	return scanMessage(r.pool.QueryRow(ctx, query, id, participantID, body, updatedAt))
}

func (r *PgMessageRepository) Delete(ctx context.Context, id, participantID string) (domain.Message, error) {
	const query = `
		DELETE FROM direct_messages
		WHERE id = $1 AND (sender_id = $2 OR recipient_id = $2)
		RETURNING id, sender_id, recipient_id, body, created_at, updated_at
	`
	return scanMessage(r.pool.QueryRow(ctx, query, id, participantID))
}

func (r *PgMessageRepository) ListConversation(ctx context.Context, userA, userB string, before domain.HistoryCursor, limit int) ([]domain.Message, error) {
	// Se trae la pagina mas reciente anterior al cursor y se invierte para
	// devolverla en orden cronologico. El id desempata mensajes con el mismo
	// created_at; con id vacio la comparacion corta solo por fecha.
	const query = `
		SELECT id, sender_id, recipient_id, body, created_at, updated_at
		FROM (
			SELECT id, sender_id, recipient_id, body, created_at, updated_at
			FROM direct_messages
			WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
			  AND (created_at, id) < ($3, $4)
			ORDER BY created_at DESC, id DESC
			LIMIT $5
		) page
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userA, userB, before.CreatedAt, before.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Body,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
