package domain

import "time"

// User es la entidad externa que el relay solo referencia. De ella se leen
// el id, el nombre visible y el handle de la conexion en vivo.
type User struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"display_name,omitempty"`
	ConnectionHandle string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Online reporta si el usuario tiene una conexion registrada.
func (u User) Online() bool {
	return u.ConnectionHandle != ""
}
