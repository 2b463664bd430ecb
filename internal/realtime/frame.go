package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"alanis-relay/internal/domain"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadFrame     = errors.New("bad frame")
)

// Frame es la unidad del protocolo: un nombre de evento y argumentos
// posicionales, igual que los emits del cliente web.
type Frame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// EncodeFrame serializa un evento saliente.
func EncodeFrame(event string, args ...any) ([]byte, error) {
	out := struct {
		Event string `json:"event"`
		Args  []any  `json:"args"`
	}{Event: event, Args: args}
	if out.Args == nil {
		out.Args = []any{}
	}
	return json.Marshal(out)
}

// DecodeEvent traduce un frame entrante a uno de los eventos del relay.
// connect y disconnect los genera el transporte, no el cliente.
func DecodeEvent(data []byte) (domain.Event, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	switch frame.Event {
	case domain.EventMessage:
		var payload struct {
			TempID flexibleID `json:"tempId"`
			ToID   flexibleID `json:"toId"`
			Body   string     `json:"message"`
		}
		if err := decodeArg(frame.Args, 0, &payload); err != nil {
			return nil, err
		}
		return domain.MessageEvent{TempID: string(payload.TempID), ToID: string(payload.ToID), Body: payload.Body}, nil

	case domain.EventUpdate:
		var payload struct {
			ID   flexibleID `json:"id"`
			Body string     `json:"message"`
		}
		if err := decodeArg(frame.Args, 0, &payload); err != nil {
			return nil, err
		}
		return domain.UpdateEvent{ID: string(payload.ID), Body: payload.Body}, nil

	case domain.EventDelete:
		var toID, id flexibleID
		if err := decodeArg(frame.Args, 0, &toID); err != nil {
			return nil, err
		}
		if err := decodeArg(frame.Args, 1, &id); err != nil {
			return nil, err
		}
		return domain.DeleteEvent{ToID: string(toID), ID: string(id)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

func decodeArg(args []json.RawMessage, i int, dst any) error {
	if i >= len(args) {
		return fmt.Errorf("%w: missing argument %d", ErrBadFrame, i)
	}
	if err := json.Unmarshal(args[i], dst); err != nil {
		return fmt.Errorf("%w: argument %d: %v", ErrBadFrame, i, err)
	}
	return nil
}

// flexibleID acepta ids como string o como numero JSON.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
