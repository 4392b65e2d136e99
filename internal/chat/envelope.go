package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Envelope types on the wire.
const (
	TypeJoin   = "join"
	TypeChat   = "chat"
	TypeSystem = "system"
	TypeError  = "error"
)

// chatTimeLayout is ISO 8601 in UTC with millisecond precision.
const chatTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Inbound is a decoded client envelope. Payload is left raw until the
// handler for Type decodes it.
type Inbound struct {
	Type    string
	Payload json.RawMessage
}

// JoinPayload is the payload of a join envelope.
type JoinPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// ChatPayload is the payload of a chat envelope.
type ChatPayload struct {
	Message string `json:"message"`
}

// SystemEnvelope is a server-generated notice.
type SystemEnvelope struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	TimeStamp string `json:"timeStamp"`
}

// ChatEnvelope is a chat message delivered to room members.
type ChatEnvelope struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	TimeStamp string `json:"timeStamp"`
	RoomID    string `json:"roomId"`
}

// ErrorEnvelope reports a validation failure to one client.
type ErrorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DecodeInbound reads the type discriminator and keeps the payload raw.
// Only unparseable frames and a bare null are malformed. Any other JSON value
// without a string type decodes to an empty Type, which no handler accepts.
func DecodeInbound(raw []byte) (Inbound, error) {
	if !gjson.ValidBytes(raw) {
		return Inbound{}, fmt.Errorf("%w: invalid JSON", ErrMalformedEnvelope)
	}
	root := gjson.ParseBytes(raw)
	if root.Type == gjson.Null {
		return Inbound{}, fmt.Errorf("%w: null envelope", ErrMalformedEnvelope)
	}
	if !root.IsObject() {
		return Inbound{}, nil
	}

	var in Inbound
	if typ := root.Get("type"); typ.Type == gjson.String {
		in.Type = typ.String()
	}
	if payload := root.Get("payload"); payload.Exists() {
		in.Payload = json.RawMessage(payload.Raw)
	}
	return in, nil
}

// decodePayload unmarshals an envelope payload into v. An absent or null
// payload leaves v at its zero value.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	return nil
}

// NewSystemEnvelope builds a system notice stamped with now.
func NewSystemEnvelope(message string, now time.Time) SystemEnvelope {
	return SystemEnvelope{
		Type:      TypeSystem,
		Message:   message,
		TimeStamp: strconv.FormatInt(now.UnixMilli(), 10),
	}
}

// NewChatEnvelope builds a chat delivery envelope stamped with now.
func NewChatEnvelope(sender, message, roomID string, now time.Time) ChatEnvelope {
	return ChatEnvelope{
		Type:      TypeChat,
		Sender:    sender,
		Message:   message,
		TimeStamp: now.UTC().Format(chatTimeLayout),
		RoomID:    roomID,
	}
}

// NewErrorEnvelope builds an error envelope.
func NewErrorEnvelope(message string) ErrorEnvelope {
	return ErrorEnvelope{Type: TypeError, Message: message}
}

// encode marshals an outbound envelope. Envelopes contain only strings, so
// marshalling cannot fail.
func encode(v any) []byte {
	frame, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("chat: encode %T: %v", v, err))
	}
	return frame
}
