package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"alanis-relay/internal/domain"
)

// Directory es la vista del directorio de conexiones que usa el relay.
type Directory interface {
	RecordConnection(ctx context.Context, userID, handle string)
	ClearConnection(ctx context.Context, userID, handle string) bool
	Lookup(ctx context.Context, userID string) string
}

// MessageStore es la vista del log de mensajes que usa el relay.
type MessageStore interface {
	Append(ctx context.Context, senderID, recipientID, body string) (domain.Message, error)
	Update(ctx context.Context, callerID, id, body string) (domain.Message, error)
	Remove(ctx context.Context, callerID, id string) (domain.Message, bool, error)
}

var (
	ErrRelayNotConfigured = errors.New("relay not configured")
	ErrRateLimited        = errors.New("rate limited")
	ErrAnonymousSession   = errors.New("anonymous session")
)

const defaultEventTimeout = 5 * time.Second

// Relay traduce eventos realtime en operaciones del store y reenvios. No
// guarda estado propio: todo vive en el directorio y en el store. Ningun
// error vuelve al cliente; se loguea y el evento se descarta.
type Relay struct {
	logger    *zap.Logger
	directory Directory
	store     MessageStore
	emitter   Emitter
	limiter   SendRateLimiter
	timeout   time.Duration
}

func NewRelay(
	logger *zap.Logger,
	directory Directory,
	store MessageStore,
	emitter Emitter,
	limiter SendRateLimiter,
	timeout time.Duration,
) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultEventTimeout
	}
	return &Relay{
		logger:    logger,
		directory: directory,
		store:     store,
		emitter:   emitter,
		limiter:   limiter,
		timeout:   timeout,
	}
}

// Handle procesa un evento de la sesion. Las llamadas de una misma conexion
// deben llegar en orden; el relay no agrega exclusion entre conexiones.
func (r *Relay) Handle(ctx context.Context, session domain.ConnSession, event domain.Event) {
	if event == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.dispatch(ctx, session, event); err != nil {
		r.logFailure(session, event, err)
	}
}

func (r *Relay) dispatch(ctx context.Context, session domain.ConnSession, event domain.Event) error {
	if r == nil || r.directory == nil || r.store == nil || r.emitter == nil {
		return ErrRelayNotConfigured
	}
	switch ev := event.(type) {
	case domain.ConnectEvent:
		return r.onConnect(ctx, session)
	case domain.MessageEvent:
		return r.onMessage(ctx, session, ev)
	case domain.UpdateEvent:
		return r.onUpdate(ctx, session, ev)
	case domain.DeleteEvent:
		return r.onDelete(ctx, session, ev)
	case domain.DisconnectEvent:
		return r.onDisconnect(ctx, session, ev)
	default:
		// domain.Event esta sellada; llegar aca es un bug de este paquete.
		panic("relay: unhandled event " + event.EventName())
	}
}

func (r *Relay) onConnect(ctx context.Context, session domain.ConnSession) error {
	if !session.Authenticated() {
		return nil
	}
	r.directory.RecordConnection(ctx, session.UserID, session.Handle)
	return nil
}

func (r *Relay) onDisconnect(ctx context.Context, session domain.ConnSession, ev domain.DisconnectEvent) error {
	if !session.Authenticated() {
		return nil
	}
	cleared := r.directory.ClearConnection(ctx, session.UserID, session.Handle)
	r.logger.Debug("session closed",
		zap.String("user_id", session.UserID),
		zap.String("handle", session.Handle),
		zap.String("reason", ev.Reason),
		zap.Bool("offline", cleared),
	)
	return nil
}

func (r *Relay) onMessage(ctx context.Context, session domain.ConnSession, ev domain.MessageEvent) error {
	if !session.Authenticated() {
		return ErrAnonymousSession
	}
	toID := strings.TrimSpace(ev.ToID)
	if toID == "" {
		return ErrMessageInvalidInput
	}
	if r.limiter != nil && !r.limiter.Allow(session.UserID) {
		return ErrRateLimited
	}

	msg, err := r.store.Append(ctx, session.UserID, toID, ev.Body)
	if err != nil {
		return err
	}

	r.emit(ctx, session.Handle, domain.EventMessageAck, domain.MessageAck{
		TempID: ev.TempID,
		RealID: msg.ID,
	})

	if handle := r.directory.Lookup(ctx, toID); handle != "" {
		r.emit(ctx, handle, domain.EventMessage, domain.ForwardedMessage{
			ID:        msg.ID,
			CreatedAt: msg.CreatedAt,
			Body:      msg.Body,
			Self:      false,
		})
	}
	return nil
}

func (r *Relay) onUpdate(ctx context.Context, session domain.ConnSession, ev domain.UpdateEvent) error {
	if !session.Authenticated() {
		return ErrAnonymousSession
	}
	msg, err := r.store.Update(ctx, session.UserID, ev.ID, ev.Body)
	if err != nil {
		return err
	}

	other := msg.Counterpart(session.UserID)
	if other == "" {
		return nil
	}
	handle := r.directory.Lookup(ctx, other)
	if handle == "" || handle == session.Handle {
		return nil
	}
	r.emit(ctx, handle, domain.EventUpdate, domain.ForwardedUpdate{
		ID:   msg.ID,
		Body: msg.Body,
	})
	return nil
}

func (r *Relay) onDelete(ctx context.Context, session domain.ConnSession, ev domain.DeleteEvent) error {
	if !session.Authenticated() {
		return ErrAnonymousSession
	}
	msg, removed, err := r.store.Remove(ctx, session.UserID, ev.ID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	// El aviso va al otro participante real del mensaje, no a un toId
	// arbitrario elegido por el cliente.
	other := msg.Counterpart(session.UserID)
	if toID := strings.TrimSpace(ev.ToID); toID != "" && toID != other {
		r.logger.Warn("delete target mismatch",
			zap.String("user_id", session.UserID),
			zap.String("message_id", msg.ID),
			zap.String("to_id", toID),
		)
	}
	if other == "" {
		return nil
	}
	if handle := r.directory.Lookup(ctx, other); handle != "" && handle != session.Handle {
		r.emit(ctx, handle, domain.EventDelete, msg.ID)
	}
	return nil
}

func (r *Relay) emit(ctx context.Context, handle, event string, args ...any) {
	if err := r.emitter.Emit(ctx, handle, event, args...); err != nil {
		r.logger.Warn("emit failed",
			zap.String("handle", handle),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (r *Relay) logFailure(session domain.ConnSession, event domain.Event, err error) {
	fields := []zap.Field{
		zap.String("event", event.EventName()),
		zap.String("user_id", session.UserID),
		zap.String("handle", session.Handle),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrAnonymousSession):
		r.logger.Debug("relay event ignored", fields...)
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrMessageInvalidInput), errors.Is(err, ErrUnknownParticipant):
		r.logger.Warn("relay event rejected", fields...)
	default:
		r.logger.Error("relay event failed", fields...)
	}
}
