package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// TypeSyncCompleted tells a user's other clients that an upload landed
	// and they should pull a fresh snapshot.
	TypeSyncCompleted MessageType = "sync_completed"
	// TypeSessionClosed tells a client its session token was displaced or
	// expired.
	TypeSessionClosed MessageType = "session_closed"
	TypePing          MessageType = "ping"
	TypePong          MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SyncCompletedPayload struct {
	SyncTimestamp int64 `json:"syncTimestamp"`
}

type SessionClosedPayload struct {
	Reason string `json:"reason"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}
