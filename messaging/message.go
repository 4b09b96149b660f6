package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
	"github.com/tidwall/gjson"
)

// Action tags a message.
type Action string

const (
	UpdateBlocking       Action = "updateBlocking"
	StartInspecting      Action = "startInspecting"
	ToggleDomainBlocking Action = "toggleDomainBlocking"
	ToggleDomainStyling  Action = "toggleDomainStyling"
	UpdateIcon           Action = "updateIcon"
)

// Actions is the closed set of known actions.
var Actions = [...]Action{UpdateBlocking, StartInspecting, ToggleDomainBlocking,
	ToggleDomainStyling, UpdateIcon}

// Known is true for members of Actions.
func (a Action) Known() bool {
	for _, k := range Actions {
		if k == a {
			return true
		}
	}
	return false
}

// Message is a request. Payload fields are action-specific; nil lists and
// switches are absent.
type Message struct {
	Action         Action
	BlockedClasses []rule.Rule
	CustomStyles   []rule.Rule
	IsEnabled      maybe.Maybe[bool]
	IsStyleEnabled maybe.Maybe[bool]
	Domain         string
	Tab            string // sending tab, if any
}

// New creates a message without payload.
func New(action Action) Message {
	return Message{Action: action}
}

// ForDomain creates a message addressing a domain.
func ForDomain(action Action, domain string) Message {
	return Message{Action: action, Domain: domain}
}

type wireMessage struct {
	Action         Action      `json:"action"`
	BlockedClasses []rule.Rule `json:"blockedClasses,omitempty"`
	CustomStyles   []rule.Rule `json:"customStyles,omitempty"`
	IsEnabled      *bool       `json:"isEnabled,omitempty"`
	IsStyleEnabled *bool       `json:"isStyleEnabled,omitempty"`
	Domain         string      `json:"domain,omitempty"`
	Tab            string      `json:"tabId,omitempty"`
}

func pointer(m maybe.Maybe[bool]) *bool {
	if m == nil {
		return nil
	}
	if v, ok := m.Get(); ok {
		return &v
	}
	return nil
}

// MarshalJSON writes the message with its action tag.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Action:         m.Action,
		BlockedClasses: m.BlockedClasses,
		CustomStyles:   m.CustomStyles,
		IsEnabled:      pointer(m.IsEnabled),
		IsStyleEnabled: pointer(m.IsStyleEnabled),
		Domain:         m.Domain,
		Tab:            m.Tab,
	})
}

// UnmarshalJSON reads a message. Rule lists are normalized like stored
// rule lists; a switch which is not a boolean counts as absent.
func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("message: invalid JSON")
	}
	v := gjson.ParseBytes(data)
	if !v.IsObject() {
		return fmt.Errorf("message: not an object")
	}
	*m = Message{
		Action:         Action(v.Get("action").String()),
		Domain:         v.Get("domain").String(),
		Tab:            v.Get("tabId").String(),
		IsEnabled:      boolField(v.Get("isEnabled")),
		IsStyleEnabled: boolField(v.Get("isStyleEnabled")),
	}
	if l := v.Get("blockedClasses"); l.IsArray() {
		m.BlockedClasses = rule.Normalize([]byte(l.Raw), rule.Blocking)
	}
	if l := v.Get("customStyles"); l.IsArray() {
		m.CustomStyles = rule.Normalize([]byte(l.Raw), rule.Styling)
	}
	return nil
}

func boolField(v gjson.Result) maybe.Maybe[bool] {
	return maybe.Of(v.Bool(), v.IsBool())
}

// Response answers a message.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// State is the resulting switch state of toggle actions.
	State *bool `json:"enabled,omitempty"`
}

// OK is the plain success response.
func OK() Response {
	return Response{Success: true}
}

// Failed builds a failure response from err.
func Failed(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Toggled is the success response carrying a new switch state.
func Toggled(state bool) Response {
	return Response{Success: true, State: &state}
}
