package http

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"alanis-relay/internal/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	handles map[string]string
}

func newMemUserRepo(ids ...string) *memUserRepo {
	r := &memUserRepo{handles: make(map[string]string)}
	for _, id := range ids {
		r.handles[id] = ""
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return domain.User{ID: id, ConnectionHandle: h}, nil
}

func (r *memUserRepo) GetConnectionHandle(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return h, nil
}

func (r *memUserRepo) SetConnectionHandle(_ context.Context, id, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[id]; !ok {
		return pgx.ErrNoRows
	}
	r.handles[id] = handle
	return nil
}

func (r *memUserRepo) ClearConnectionHandle(_ context.Context, id, expected string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[id] != expected {
		return false, nil
	}
	r.handles[id] = ""
	return true, nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
	listErr  error
}

func (r *memMessageRepo) Create(_ context.Context, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *memMessageRepo) UpdateBody(_ context.Context, id, participantID, body string, updatedAt time.Time) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id && m.HasParticipant(participantID) {
			r.messages[i].Body = body
			r.messages[i].UpdatedAt = &updatedAt
			return r.messages[i], nil
		}
	}
	return domain.Message{}, pgx.ErrNoRows
}

func (r *memMessageRepo) Delete(_ context.Context, id, participantID string) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id && m.HasParticipant(participantID) {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return m, nil
		}
	}
	return domain.Message{}, pgx.ErrNoRows
}

func (r *memMessageRepo) ListConversation(_ context.Context, userA, userB string, before domain.HistoryCursor, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Message
	for _, m := range r.messages {
		pair := (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA)
		if pair && m.Before(before) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Cursor()) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

var errBoom = errors.New("boom")
