package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"alanis-relay/internal/domain"
	"alanis-relay/internal/repository"
)

// MessageService es el store durable de mensajes directos. No valida
// contenido ni tamanos; solo garantiza ids unicos y participantes presentes.
type MessageService struct {
	repo  repository.MessageRepository
	now   func() time.Time
	newID func() string
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
	ErrMessageNotFound             = errors.New("message not found")
	ErrUnknownParticipant          = errors.New("message participant not found")
	ErrPersistence                 = errors.New("message persistence failed")
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		newID: func() string {
			return ulid.Make().String()
		},
	}
}

// Append crea y persiste un mensaje con id y created_at asignados aqui.
func (s *MessageService) Append(ctx context.Context, senderID, recipientID, body string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	senderID = strings.TrimSpace(senderID)
	recipientID = strings.TrimSpace(recipientID)
	if senderID == "" || recipientID == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}

	msg := domain.Message{
		ID:          s.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		if isForeignKeyViolation(err) {
			return domain.Message{}, ErrUnknownParticipant
		}
		return domain.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msg, nil
}

// Update reemplaza el cuerpo del mensaje id. Solo un participante puede
// editar; para cualquier otro caller el mensaje no existe.
func (s *MessageService) Update(ctx context.Context, callerID, id, body string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	callerID = strings.TrimSpace(callerID)
	id = strings.TrimSpace(id)
	if callerID == "" || id == "" {
		return domain.Message{}, ErrMessageNotFound
	}

	msg, err := s.repo.UpdateBody(ctx, id, callerID, body, s.now())
	if err != nil {
		if isNoRows(err) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msg, nil
}

// Remove borra definitivamente el mensaje id. Borrar algo ausente no es un
// error: devuelve false.
func (s *MessageService) Remove(ctx context.Context, callerID, id string) (domain.Message, bool, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, false, ErrMessageServiceNotConfigured
	}

	callerID = strings.TrimSpace(callerID)
	id = strings.TrimSpace(id)
	if callerID == "" || id == "" {
		return domain.Message{}, false, nil
	}

	msg, err := s.repo.Delete(ctx, id, callerID)
	if err != nil {
		if isNoRows(err) {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msg, true, nil
}

// ListConversation devuelve la pagina de mensajes entre userID y peerID
// anterior a before, en orden cronologico. Sin cursor arranca desde ahora.
func (s *MessageService) ListConversation(ctx context.Context, userID, peerID string, before domain.HistoryCursor, limit int) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrMessageServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	peerID = strings.TrimSpace(peerID)
	if userID == "" || peerID == "" {
		return []domain.Message{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if before.CreatedAt.IsZero() {
		before = domain.HistoryCursor{CreatedAt: s.now().Add(time.Second)}
	}
	msgs, err := s.repo.ListConversation(ctx, userID, peerID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}
