package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/tictactoe-server/internal/model"
)

// Envelope is the wire form of every message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is anything with a wire type
type Message interface {
	Type() string
}

// Encode marshals a message into its envelope. The result carries no
// trailing newline; stream transports add their own delimiter.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{Type: msg.Type(), Data: data})
}

// MustEncode is Encode for messages that always marshal
func MustEncode(msg Message) []byte {
	b, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeInbound parses a client frame. All failures wrap model.ErrProtocol.
func DecodeInbound(frame []byte) (Inbound, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeRegister:
		var m Register
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeLogin:
		var m Login
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeCreateGame:
		return CreateGame{}, nil
	case TypeMove:
		var raw struct {
			CellIndex *int `json:"cellIndex"`
		}
		if err := decodeData(env, &raw); err != nil {
			return nil, err
		}
		if raw.CellIndex == nil {
			return nil, fmt.Errorf("%w: move requires cellIndex", model.ErrProtocol)
		}
		return Move{CellIndex: *raw.CellIndex}, nil
	case TypeChat:
		var m ChatRequest
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.Text) == "" || utf8.RuneCountInString(m.Text) > MaxChatLength {
			return nil, fmt.Errorf("%w: chat text must be 1-%d characters", model.ErrProtocol, MaxChatLength)
		}
		return m, nil
	case TypeLeaveGame:
		return LeaveGame{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing message type", model.ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", model.ErrProtocol, env.Type)
	}
}

// DecodeOutbound parses a server frame
func DecodeOutbound(frame []byte) (Outbound, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeRegisterResponse:
		return decodeAs[RegisterResponse](env)
	case TypeLoginResponse:
		return decodeAs[LoginResponse](env)
	case TypeWaiting:
		return decodeAs[Waiting](env)
	case TypeGameStart:
		return decodeAs[GameStart](env)
	case TypeGameUpdate:
		return decodeAs[GameUpdate](env)
	case TypeGameOver:
		return decodeAs[GameOver](env)
	case TypeChat:
		return decodeAs[Chat](env)
	case TypeError:
		return decodeAs[Error](env)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", model.ErrProtocol, env.Type)
	}
}

func decodeAs[T Outbound](env Envelope) (Outbound, error) {
	var m T
	if err := decodeData(env, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("%w: malformed JSON", model.ErrProtocol)
	}
	return env, nil
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: invalid data for %s", model.ErrProtocol, env.Type)
	}
	return nil
}
