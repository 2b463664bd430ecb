package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"alanis-relay/internal/domain"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	handles  map[string]string
	setErr   error
	clearErr error
	getErr   error
}

func newFakeUserRepo(ids ...string) *fakeUserRepo {
	repo := &fakeUserRepo{handles: make(map[string]string)}
	for _, id := range ids {
		repo.handles[id] = ""
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	handle, ok := f.handles[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return domain.User{ID: id, ConnectionHandle: handle}, nil
}

func (f *fakeUserRepo) GetConnectionHandle(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	handle, ok := f.handles[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return handle, nil
}

func (f *fakeUserRepo) SetConnectionHandle(_ context.Context, id, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	if _, ok := f.handles[id]; !ok {
		return pgx.ErrNoRows
	}
	f.handles[id] = handle
	return nil
}

func (f *fakeUserRepo) ClearConnectionHandle(_ context.Context, id, expected string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return false, f.clearErr
	}
	if current, ok := f.handles[id]; !ok || current != expected {
		return false, nil
	}
	f.handles[id] = ""
	return true, nil
}

func (f *fakeUserRepo) handle(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[id]
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[string]domain.Message
	creates   int
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	listArgs  []any
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]domain.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, message domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.creates++
	f.messages[message.ID] = message
	return nil
}

func (f *fakeMessageRepo) UpdateBody(_ context.Context, id, participantID, body string, updatedAt time.Time) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Message{}, f.updateErr
	}
	msg, ok := f.messages[id]
	if !ok || !msg.HasParticipant(participantID) {
		return domain.Message{}, pgx.ErrNoRows
	}
	msg.Body = body
	msg.UpdatedAt = &updatedAt
	f.messages[id] = msg
	return msg, nil
}

func (f *fakeMessageRepo) Delete(_ context.Context, id, participantID string) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return domain.Message{}, f.deleteErr
	}
	msg, ok := f.messages[id]
	if !ok || !msg.HasParticipant(participantID) {
		return domain.Message{}, pgx.ErrNoRows
	}
	delete(f.messages, id)
	return msg, nil
}

func (f *fakeMessageRepo) ListConversation(_ context.Context, userA, userB string, before domain.HistoryCursor, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listArgs = []any{userA, userB, before, limit}
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Message
	for _, m := range f.messages {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			if m.Before(before) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Cursor()) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageRepo) get(id string) (domain.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	return msg, ok
}

type emission struct {
	handle string
	event  string
	args   []any
}

// fakeHub simula el transporte: un set de handles conectados que registra
// cada entrega.
type fakeHub struct {
	mu         sync.Mutex
	connected  map[string]bool
	deliveries []emission
	emitErr    error
}

func newFakeHub(handles ...string) *fakeHub {
	h := &fakeHub{connected: make(map[string]bool)}
	for _, handle := range handles {
		h.connected[handle] = true
	}
	return h
}

func (h *fakeHub) connect(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected[handle] = true
}

func (h *fakeHub) Emit(_ context.Context, handle, event string, args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.emitErr != nil {
		return h.emitErr
	}
	if !h.connected[handle] {
		return errors.New("handle not connected")
	}
	h.deliveries = append(h.deliveries, emission{handle: handle, event: event, args: args})
	return nil
}

func (h *fakeHub) Broadcast(_ context.Context, exceptHandle, event string, args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for handle := range h.connected {
		if handle == exceptHandle {
			continue
		}
		h.deliveries = append(h.deliveries, emission{handle: handle, event: event, args: args})
	}
	return nil
}

func (h *fakeHub) to(handle string) []emission {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []emission
	for _, d := range h.deliveries {
		if d.handle == handle {
			out = append(out, d)
		}
	}
	return out
}

func (h *fakeHub) count(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, d := range h.deliveries {
		if d.event == event {
			n++
		}
	}
	return n
}

func (h *fakeHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliveries = nil
}
