// Package message defines the immutable message value moving through the
// ingestion pipeline and its payload-derived identity
package message

import (
	"encoding/json"
	"time"

	perr "warden/internal/platform/errors"

	"github.com/google/uuid"
)

// Namespace for payload-derived message ids. Two messages with the same
// canonical payload always produce the same id, which is what lets the
// message upsert dedup replays
var Namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("warden/message"))

// Message is an immutable unit of actor behavior
type Message struct {
	id         uuid.UUID
	receivedAt time.Time
	payload    map[string]any
}

// New builds a message whose id derives from the canonical payload encoding
func New(receivedAt time.Time, payload map[string]any) (Message, error) {
	raw, err := Canonical(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		id:         uuid.NewSHA1(Namespace, raw),
		receivedAt: receivedAt.UTC(),
		payload:    payload,
	}, nil
}

// NewWithID builds a message with an explicit id, used when rehydrating
// persisted rows
func NewWithID(id uuid.UUID, receivedAt time.Time, payload map[string]any) Message {
	return Message{id: id, receivedAt: receivedAt.UTC(), payload: payload}
}

// ID returns the message identity
func (m Message) ID() uuid.UUID { return m.id }

// ReceivedAt returns the ingestion timestamp in UTC
func (m Message) ReceivedAt() time.Time { return m.receivedAt }

// Payload returns the raw payload map. Callers must not mutate it
func (m Message) Payload() map[string]any { return m.payload }

// Get walks nested payload maps along path and reports whether every hop
// existed. A missing hop or a non-map intermediate yields ok=false
func (m Message) Get(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = m.payload
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString is Get narrowed to string values
func (m Message) GetString(path ...string) (string, bool) {
	v, ok := m.Get(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether path resolves in the payload
func (m Message) Has(path ...string) bool {
	_, ok := m.Get(path...)
	return ok
}

// Canonical returns the deterministic JSON encoding of a payload.
// encoding/json emits map keys in sorted order at every nesting level,
// so equal payloads always encode to equal bytes
func Canonical(payload map[string]any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "payload not encodable")
	}
	return raw, nil
}
