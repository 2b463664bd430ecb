package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// natsConn es la parte de *nats.Conn que usa el bridge.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NatsBridge extiende el Hub a varias instancias del relay. Las emisiones a
// handles que no viven en este proceso y todos los broadcasts se publican en
// NATS; cada instancia entrega lo que le corresponde a sus conexiones.
type NatsBridge struct {
	logger *zap.Logger
	hub    *Hub
	conn   natsConn
	prefix string
	origin string
	subs   []*nats.Subscription
}

type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Handle string          `json:"handle,omitempty"`
	Except string          `json:"except,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

func NewNatsBridge(logger *zap.Logger, hub *Hub, conn natsConn, prefix string) *NatsBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "relay"
	}
	return &NatsBridge{
		logger: logger,
		hub:    hub,
		conn:   conn,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

// Start suscribe el bridge a los subjects de entrega y de broadcast.
func (b *NatsBridge) Start() error {
	if b == nil || b.conn == nil || b.hub == nil {
		return errors.New("nats bridge not configured")
	}
	handleSub, err := b.conn.Subscribe(b.prefix+".handle.*", b.onHandleMsg)
	if err != nil {
		return fmt.Errorf("subscribe handle subject: %w", err)
	}
	broadcastSub, err := b.conn.Subscribe(b.broadcastSubject(), b.onBroadcastMsg)
	if err != nil {
		if handleSub != nil {
			_ = handleSub.Unsubscribe()
		}
		return fmt.Errorf("subscribe broadcast subject: %w", err)
	}
	b.subs = append(b.subs, handleSub, broadcastSub)
	return nil
}

// Close cancela las suscripciones. La conexion NATS la cierra main.
func (b *NatsBridge) Close() {
	for _, sub := range b.subs {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}
	b.subs = nil
}

func (b *NatsBridge) Emit(_ context.Context, handle, event string, args ...any) error {
	frame, err := EncodeFrame(event, args...)
	if err != nil {
		return err
	}
	if b.hub.deliver(handle, frame) {
		return nil
	}
	return b.publish(b.handleSubject(handle), bridgeEnvelope{
		Origin: b.origin,
		Handle: handle,
		Frame:  frame,
	})
}

func (b *NatsBridge) Broadcast(_ context.Context, exceptHandle, event string, args ...any) error {
	frame, err := EncodeFrame(event, args...)
	if err != nil {
		return err
	}
	b.hub.broadcastLocal(exceptHandle, frame)
	return b.publish(b.broadcastSubject(), bridgeEnvelope{
		Origin: b.origin,
		Except: exceptHandle,
		Frame:  frame,
	})
}

func (b *NatsBridge) publish(subject string, env bridgeEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (b *NatsBridge) onHandleMsg(msg *nats.Msg) {
	env, ok := b.decode(msg)
	if !ok || env.Origin == b.origin {
		return
	}
	// Todas las instancias reciben el mensaje; solo la duena del handle entrega.
	b.hub.deliver(env.Handle, env.Frame)
}

func (b *NatsBridge) onBroadcastMsg(msg *nats.Msg) {
	env, ok := b.decode(msg)
	if !ok || env.Origin == b.origin {
		return
	}
	b.hub.broadcastLocal(env.Except, env.Frame)
}

func (b *NatsBridge) decode(msg *nats.Msg) (bridgeEnvelope, bool) {
	var env bridgeEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn("invalid bridge message", zap.String("subject", msg.Subject), zap.Error(err))
		return bridgeEnvelope{}, false
	}
	return env, true
}

func (b *NatsBridge) handleSubject(handle string) string {
	return fmt.Sprintf("%s.handle.%s", b.prefix, handle)
}

func (b *NatsBridge) broadcastSubject() string {
	return b.prefix + ".broadcast"
}
