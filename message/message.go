// Package message defines the structured types emitted by the chat
// observation pipeline. These are the public API contract: any consumer
// (bots, loggers, custom pipelines) imports this package to receive and
// process chat events.
package message

import (
	"encoding/json"
	"strings"
)

// Type classifies a chat row.
type Type string

const (
	TypeMessage Type = "message" // regular room message
	TypeWhisper Type = "whisper" // privately addressed message
)

// Record is a raw row reconstructed from one pass over the chat panel.
// It carries exactly what the rendered transcript shows: no identity
// resolution, no sanitisation.
type Record struct {
	Type    Type   `json:"type"`
	RoomID  string `json:"room_id"`
	Author  string `json:"author"`  // username handle as rendered
	Content string `json:"content"` // raw inner markup, trimmed
}

// Equal reports whether two records are the same utterance. Records are
// rebuilt from scratch on every pass, so identity is content identity:
// same type, same author, same markup.
func (r Record) Equal(o Record) bool {
	return r.Type == o.Type && r.Author == o.Author && r.Content == o.Content
}

// Room is a chat channel reference. Rooms are identified solely by an
// opaque id; no further room state is tracked.
type Room struct {
	ID string `json:"id"`
}

// Message is a fully enriched chat event delivered to subscribers.
type Message struct {
	ID        string `json:"id"` // msg_<UUIDv7>
	Type      Type   `json:"type"`
	Room      Room   `json:"room"`
	Author    User   `json:"author"`
	Content   string `json:"content"` // raw markup as rendered
	Text      string `json:"text"`    // sanitised markdown rendering of Content
	Timestamp int64  `json:"timestamp"` // epoch milliseconds at observation
}

// MarshalMessage serialises a Message to JSON.
func MarshalMessage(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMessage deserialises a Message from JSON.
func UnmarshalMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarshalRecords serialises a record batch to JSON.
func MarshalRecords(recs []Record) ([]byte, error) {
	return json.Marshal(recs)
}

// UnmarshalRecords deserialises a record batch from JSON.
func UnmarshalRecords(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// TrimContent normalises raw row markup: surrounding whitespace carries
// no meaning in the rendered transcript.
func TrimContent(s string) string {
	return strings.TrimSpace(s)
}
