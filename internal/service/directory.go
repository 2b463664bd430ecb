package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alanis-relay/internal/domain"
	"alanis-relay/internal/repository"
)

// Broadcaster envia un evento a todas las conexiones salvo exceptHandle.
type Broadcaster interface {
	Broadcast(ctx context.Context, exceptHandle, event string, args ...any) error
}

// Emitter entrega eventos a una conexion puntual y difunde presencia.
type Emitter interface {
	Broadcaster
	Emit(ctx context.Context, handle, event string, args ...any) error
}

// ConnectionDirectory mapea usuario -> handle vivo. El handle se persiste en
// la fila del usuario; la presencia es informativa, asi que los errores de
// escritura se loguean y no cortan el ciclo de la conexion.
type ConnectionDirectory struct {
	logger      *zap.Logger
	users       repository.UserRepository
	broadcaster Broadcaster
}

func NewConnectionDirectory(logger *zap.Logger, users repository.UserRepository, broadcaster Broadcaster) *ConnectionDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionDirectory{
		logger:      logger,
		users:       users,
		broadcaster: broadcaster,
	}
}

// RecordConnection registra handle como conexion actual de userID y avisa
// user:+ al resto.
func (d *ConnectionDirectory) RecordConnection(ctx context.Context, userID, handle string) {
	userID = strings.TrimSpace(userID)
	if userID == "" || handle == "" {
		return
	}
	if d.users != nil {
		if err := d.users.SetConnectionHandle(ctx, userID, handle); err != nil {
			d.logger.Warn("record connection failed",
				zap.String("user_id", userID),
				zap.String("handle", handle),
				zap.Error(err),
			)
		}
	}
	d.broadcast(ctx, handle, domain.EventUserOnline, userID)
}

// ClearConnection limpia el handle de userID solo si sigue siendo handle.
// Si una conexion mas nueva ya lo reemplazo no se toca nada ni se anuncia
// user:-. Devuelve true si el usuario quedo offline.
func (d *ConnectionDirectory) ClearConnection(ctx context.Context, userID, handle string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" || handle == "" {
		return false
	}
	if d.users != nil {
		cleared, err := d.users.ClearConnectionHandle(ctx, userID, handle)
		if err != nil {
			d.logger.Warn("clear connection failed",
				zap.String("user_id", userID),
				zap.String("handle", handle),
				zap.Error(err),
			)
		} else if !cleared {
			d.logger.Debug("stale disconnect ignored",
				zap.String("user_id", userID),
				zap.String("handle", handle),
			)
			return false
		}
	}
	d.broadcast(ctx, handle, domain.EventUserGone, userID)
	return true
}

// Lookup devuelve el handle vivo de userID o "" si esta offline o no existe.
func (d *ConnectionDirectory) Lookup(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" || d.users == nil {
		return ""
	}
	handle, err := d.users.GetConnectionHandle(ctx, userID)
	if err != nil {
		if !isNoRows(err) {
			d.logger.Warn("lookup connection failed", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	return handle
}

func (d *ConnectionDirectory) broadcast(ctx context.Context, exceptHandle, event, userID string) {
	if d.broadcaster == nil {
		return
	}
	if err := d.broadcaster.Broadcast(ctx, exceptHandle, event, userID); err != nil {
		d.logger.Warn("presence broadcast failed",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
