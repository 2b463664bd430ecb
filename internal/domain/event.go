package domain

import "time"

// Nombres de eventos del protocolo realtime.
const (
	EventConnect    = "connect"
	EventMessage    = "message"
	EventMessageAck = "message:id"
	EventUpdate     = "update"
	EventDelete     = "delete"
	EventDisconnect = "disconnect"
	EventUserOnline = "user:+"
	EventUserGone   = "user:-"
)

// Event es el conjunto cerrado de eventos entrantes que procesa el relay.
// Solo los tipos de este paquete lo implementan.
type Event interface {
	EventName() string
	sealed()
}

type ConnectEvent struct{}

type MessageEvent struct {
	TempID string `json:"tempId"`
	ToID   string `json:"toId"`
	Body   string `json:"message"`
}

type UpdateEvent struct {
	ID   string `json:"id"`
	Body string `json:"message"`
}

type DeleteEvent struct {
	ToID string
	ID   string
}

type DisconnectEvent struct {
	Reason string
}

func (ConnectEvent) EventName() string    { return EventConnect }
func (MessageEvent) EventName() string    { return EventMessage }
func (UpdateEvent) EventName() string     { return EventUpdate }
func (DeleteEvent) EventName() string     { return EventDelete }
func (DisconnectEvent) EventName() string { return EventDisconnect }

func (ConnectEvent) sealed()    {}
func (MessageEvent) sealed()    {}
func (UpdateEvent) sealed()     {}
func (DeleteEvent) sealed()     {}
func (DisconnectEvent) sealed() {}

// MessageAck correlaciona el id temporal del cliente con el id durable.
type MessageAck struct {
	TempID string `json:"id"`
	RealID string `json:"realId"`
}

// ForwardedMessage es lo que recibe el destinatario de un mensaje nuevo.
type ForwardedMessage struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Body      string    `json:"message"`
	Self      bool      `json:"self"`
}

// ForwardedUpdate notifica al otro participante de una edicion.
type ForwardedUpdate struct {
	ID   string `json:"id"`
	Body string `json:"message"`
}
