// Package message builds and decodes the envelopes accepted by the relay.
//
// An envelope carries a channel id and a typed, timestamped payload:
//
//	{"id": "channel", "data": {"type": "stat", "date": 1700000000000, "data": {...}}}
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type is the payload kind understood by the viewer.
type Type string

const (
	TypeStat      Type = "stat"
	TypeLog       Type = "log"
	TypeWarn      Type = "warn"
	TypeError     Type = "error"
	TypeCallGraph Type = "callgraph"
)

// ErrInvalidEnvelope is returned by Decode for malformed envelopes.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// UnknownMessageTypeError reports a type outside the known set.
type UnknownMessageTypeError struct {
	Type string
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %q", e.Type)
}

// ParseType validates s against the known message types.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeStat, TypeLog, TypeWarn, TypeError, TypeCallGraph:
		return t, nil
	}
	return "", &UnknownMessageTypeError{Type: s}
}

func (t Type) MarshalJSON() ([]byte, error) {
	if _, err := ParseType(string(t)); err != nil {
		return nil, err
	}
	return json.Marshal(string(t))
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("message type: %w", err)
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Message is a typed payload stamped with milliseconds since the epoch.
type Message struct {
	Type Type  `json:"type"`
	Date int64 `json:"date"`
	Data any   `json:"data"`
}

// New stamps data with date.
func New(t Type, date time.Time, data any) Message {
	return Message{Type: t, Date: date.UnixMilli(), Data: data}
}

func Log(date time.Time, data any) Message   { return New(TypeLog, date, data) }
func Warn(date time.Time, data any) Message  { return New(TypeWarn, date, data) }
func Error(date time.Time, data any) Message { return New(TypeError, date, data) }

// Time converts Date back to a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Date)
}

// Envelope addresses a message to a relay channel.
type Envelope struct {
	ID   string  `json:"id"`
	Data Message `json:"data"`
}

// Wrap addresses m to channel.
func Wrap(channel string, m Message) *Envelope {
	return &Envelope{ID: channel, Data: m}
}

// Encode marshals the envelope, validating its type.
func (e *Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

// Decode parses an envelope. The id must be a JSON string and data a JSON
// object; an unrecognised type yields *UnknownMessageTypeError.
func Decode(b []byte) (*Envelope, error) {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	var env Envelope
	if !bytes.HasPrefix(raw.ID, []byte(`"`)) {
		return nil, fmt.Errorf("%w: id is not a string", ErrInvalidEnvelope)
	}
	if err := json.Unmarshal(raw.ID, &env.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if !bytes.HasPrefix(raw.Data, []byte("{")) {
		return nil, fmt.Errorf("%w: data is not an object", ErrInvalidEnvelope)
	}
	if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	return &env, nil
}
