// Package panel implements the test panel's message protocol: JSON messages
// in, JSON events out. The same controller backs the stdio server and the
// terminal chat.
package panel

import (
	"encoding/json"

	"testcrafter/internal/types"
)

// Inbound message types.
const (
	MsgSendMessage      = "sendMessage"
	MsgAskQuestion      = "askQuestion"
	MsgGenerateTests    = "generateTests"
	MsgRunTests         = "runTests"
	MsgRunAllTests      = "runAllTests"
	MsgAcceptTest       = "acceptTest"
	MsgRejectTest       = "rejectTest"
	MsgToggleAutoDetect = "toggleAutoDetect"
	MsgAcceptCode       = "acceptCode"
	MsgRejectCode       = "rejectCode"
	MsgOpenFile         = "openFile"
)

// Outbound event types.
const (
	EventTestsUpdated   = "testsUpdated"
	EventUpdateStatus   = "updateStatus"
	EventReceiveMessage = "receiveMessage"
	EventSetTyping      = "setTyping"
	EventError          = "error"
	EventInfo           = "info"
)

// Message is an inbound request. The discriminator may arrive as "type" or
// "command".
type Message struct {
	Type       string `json:"type,omitempty"`
	Command    string `json:"command,omitempty"`
	Message    string `json:"message,omitempty"`
	TestID     string `json:"testId,omitempty"`
	Enabled    bool   `json:"enabled,omitempty"`
	Code       string `json:"code,omitempty"`
	Path       string `json:"path,omitempty"`
	LanguageID string `json:"languageId,omitempty"`
}

// Kind returns the message discriminator.
func (m Message) Kind() string {
	if m.Type != "" {
		return m.Type
	}
	return m.Command
}

// Event is an outbound notification. Only the fields belonging to Type are
// serialized.
type Event struct {
	Type    string
	Tests   []types.TestCase
	Message string
	Loading bool
	Value   bool
	Chat    *types.ChatMessage
}

// MarshalJSON encodes the event in its wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventTestsUpdated:
		tests := e.Tests
		if tests == nil {
			tests = []types.TestCase{}
		}
		return json.Marshal(struct {
			Type  string           `json:"type"`
			Tests []types.TestCase `json:"tests"`
		}{e.Type, tests})
	case EventUpdateStatus:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Loading bool   `json:"loading"`
		}{e.Type, e.Message, e.Loading})
	case EventReceiveMessage:
		return json.Marshal(struct {
			Type    string             `json:"type"`
			Message *types.ChatMessage `json:"message"`
		}{e.Type, e.Chat})
	case EventSetTyping:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Value bool   `json:"value"`
		}{e.Type, e.Value})
	default:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{e.Type, e.Message})
	}
}

// Emitter delivers events to the panel.
type Emitter func(Event)
