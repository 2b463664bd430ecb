package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alanis-relay/internal/domain"
)

// EventHandler procesa los eventos de una conexion. Las llamadas de una
// misma conexion llegan en orden y nunca en paralelo.
type EventHandler interface {
	Handle(ctx context.Context, session domain.ConnSession, event domain.Event)
}

// Options ajusta limites y tiempos de cada conexion.
type Options struct {
	MaxMessageBytes int64
	SendBuffer      int
	PongWait        time.Duration
	PingPeriod      time.Duration
	WriteWait       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 16 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

// Client es una conexion websocket registrada en el hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session domain.ConnSession
	opts    Options
	send    chan []byte
	done    chan struct{}
	once    sync.Once

	shuttingMu sync.Mutex
	shutting   bool
}

const closeReasonShutdown = "server shutdown"

// Serve registra conn en el hub y bloquea hasta que la conexion se cierra.
// Emite connect al empezar y disconnect al terminar.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID string, handler EventHandler, opts Options) {
	opts = opts.withDefaults()
	c := &Client{
		hub:  h,
		conn: conn,
		session: domain.ConnSession{
			Handle: uuid.NewString(),
			UserID: userID,
		},
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, closeReasonShutdown),
			time.Now().Add(opts.WriteWait))
		_ = conn.Close()
		h.logger.Debug("connection rejected, hub closed", zap.String("user_id", userID))
		return
	}
	defer h.serving.Done()

	h.logger.Info("client connected",
		zap.String("handle", c.session.Handle),
		zap.String("user_id", c.session.UserID),
	)

	go c.writePump()

	handler.Handle(ctx, c.session, domain.ConnectEvent{})
	reason := c.readPump(ctx, handler)
	if c.isShutdown() {
		reason = closeReasonShutdown
	}

	c.close()
	h.unregister(c)
	// El disconnect tiene que correr aunque el contexto del request ya no sirva.
	handler.Handle(context.WithoutCancel(ctx), c.session, domain.DisconnectEvent{Reason: reason})
	h.logger.Info("client disconnected",
		zap.String("handle", c.session.Handle),
		zap.String("user_id", c.session.UserID),
		zap.String("reason", reason),
	)
}

// readPump lee frames y los despacha en orden. Devuelve el motivo de cierre.
func (c *Client) readPump(ctx context.Context, handler EventHandler) string {
	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error",
					zap.String("handle", c.session.Handle),
					zap.Error(err),
				)
			}
			return closeReason(err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		event, err := DecodeEvent(data)
		if err != nil {
			c.hub.logger.Debug("frame dropped",
				zap.String("handle", c.session.Handle),
				zap.Error(err),
			)
			continue
		}
		handler.Handle(ctx, c.session, event)
	}
}

// writePump es el unico escritor de la conexion.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.logger.Debug("websocket write error",
					zap.String("handle", c.session.Handle),
					zap.Error(err),
				)
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			code, text := websocket.CloseNormalClosure, ""
			if c.isShutdown() {
				code, text = websocket.CloseGoingAway, closeReasonShutdown
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
			return
		}
	}
}

// enqueue nunca bloquea: con el buffer lleno el frame se descarta.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("send buffer full, frame dropped",
			zap.String("handle", c.session.Handle),
			zap.String("user_id", c.session.UserID),
		)
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// shutdown cierra la conexion avisando al cliente que el servidor se va.
func (c *Client) shutdown() {
	c.shuttingMu.Lock()
	c.shutting = true
	c.shuttingMu.Unlock()
	c.close()
}

func (c *Client) isShutdown() bool {
	c.shuttingMu.Lock()
	defer c.shuttingMu.Unlock()
	return c.shutting
}

func closeReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Text != "" {
		return closeErr.Text
	}
	return err.Error()
}
