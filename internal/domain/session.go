package domain

// ConnSession representa una conexion realtime activa. UserID queda vacio
// para conexiones anonimas.
type ConnSession struct {
	Handle string
	UserID string
}

// Authenticated indica si la conexion tiene un usuario asociado.
func (s ConnSession) Authenticated() bool {
	return s.UserID != ""
}
