package amqp

import (
	"encoding/json"

	applog "agrocost/internal/log"
)

// Source identifies events published by this application
const Source = "agrocost"

// LogEventMessage is the body published for every shipped error record
type LogEventMessage struct {
	Source string `json:"source"`
	applog.Event
}

// NewLogEventMessage wraps an event with the application name
func NewLogEventMessage(e applog.Event) *LogEventMessage {
	return &LogEventMessage{Source: Source, Event: e}
}

// ToJSON converts the message to JSON bytes
func (m *LogEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LogEventMessageFromJSON creates a message from JSON bytes
func LogEventMessageFromJSON(data []byte) (*LogEventMessage, error) {
	var msg LogEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
