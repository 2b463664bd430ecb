package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrHandleNotFound = errors.New("handle not connected")
	ErrHubClosed      = errors.New("hub closed")
)

// Hub es el registro en memoria de conexiones vivas de este proceso,
// indexado por handle.
type Hub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[string]*Client
	closing bool
	serving sync.WaitGroup
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// Emit entrega un evento a la conexion handle si vive en este proceso.
func (h *Hub) Emit(_ context.Context, handle, event string, args ...any) error {
	frame, err := EncodeFrame(event, args...)
	if err != nil {
		return err
	}
	if !h.deliver(handle, frame) {
		return ErrHandleNotFound
	}
	return nil
}

// Broadcast entrega un evento a todas las conexiones locales menos exceptHandle.
func (h *Hub) Broadcast(_ context.Context, exceptHandle, event string, args ...any) error {
	frame, err := EncodeFrame(event, args...)
	if err != nil {
		return err
	}
	h.broadcastLocal(exceptHandle, frame)
	return nil
}

// Has indica si handle pertenece a una conexion de este proceso.
func (h *Hub) Has(handle string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[handle]
	return ok
}

// Len devuelve la cantidad de conexiones locales.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(handle string, frame []byte) bool {
	h.mu.RLock()
	c, ok := h.clients[handle]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.enqueue(frame)
	return true
}

func (h *Hub) broadcastLocal(exceptHandle string, frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for handle, c := range h.clients {
		if handle != exceptHandle {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(frame)
	}
}

// Close cierra todas las conexiones y espera a que cada Serve termine,
// disconnect incluido. Despues de Close el hub rechaza conexiones nuevas.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.shutdown()
	}

	done := make(chan struct{})
	go func() {
		h.serving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// register agrega c y lo cuenta como sesion activa. Devuelve false si el
// hub ya esta cerrando.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c.session.Handle] = c
	h.serving.Add(1)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.session.Handle]; ok && current == c {
		delete(h.clients, c.session.Handle)
	}
	h.mu.Unlock()
}
