package domain

import "time"

// Message es un mensaje directo entre dos usuarios.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// HasParticipant indica si userID es emisor o receptor del mensaje.
func (m Message) HasParticipant(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.RecipientID == userID)
}

// Counterpart devuelve el otro participante respecto de userID.
func (m Message) Counterpart(userID string) string {
	switch userID {
	case m.SenderID:
		return m.RecipientID
	case m.RecipientID:
		return m.SenderID
	default:
		return ""
	}
}

// HistoryCursor marca el limite exclusivo de una pagina de historial. Los
// mensajes se ordenan por (CreatedAt, ID); un ID vacio corta solo por fecha.
type HistoryCursor struct {
	CreatedAt time.Time
	ID        string
}

// Before indica si el mensaje va antes que el cursor.
func (m Message) Before(c HistoryCursor) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

// Cursor devuelve el cursor que apunta justo a este mensaje.
func (m Message) Cursor() HistoryCursor {
	return HistoryCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}
