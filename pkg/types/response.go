package types

import "fmt"

// Status is the state of the transfer workflow
type Status string

const (
	StatusIdle     Status = ""         // No transfer attempted yet
	StatusPending  Status = "pending"  // Transfer submitted, waiting for settlement
	StatusComplete Status = "complete" // Chain executed the transfer
	StatusError    Status = "error"    // Transfer was rejected or failed
)

// IsTerminal returns true for states that end an attempt
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s Status) String() string {
	if s == StatusIdle {
		return "idle"
	}
	return string(s)
}

// MessageKind tags the variant held by a Message
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessagePlainText
	MessageLinkReference
)

// Message is the display payload of a NetworkResponse.
// Exactly one of the variants is populated, as indicated by Kind.
type Message struct {
	Kind  MessageKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	URL   string      `json:"url,omitempty"`
	Label string      `json:"label,omitempty"`
}

// PlainText builds a plain text message
func PlainText(text string) Message {
	return Message{Kind: MessagePlainText, Text: text}
}

// LinkReference builds a message that points at a navigable URL
func LinkReference(text, url, label string) Message {
	return Message{Kind: MessageLinkReference, Text: text, URL: url, Label: label}
}

// IsLink returns true if the message carries a URL
func (m Message) IsLink() bool {
	return m.Kind == MessageLinkReference
}

// String renders the message for a terminal
func (m Message) String() string {
	switch m.Kind {
	case MessagePlainText:
		return m.Text
	case MessageLinkReference:
		if m.Text == "" {
			return fmt.Sprintf("%s: %s", m.Label, m.URL)
		}
		return fmt.Sprintf("%s %s: %s", m.Text, m.Label, m.URL)
	default:
		return ""
	}
}

// NetworkResponse is the observable outcome of the transfer workflow
type NetworkResponse struct {
	Status  Status  `json:"status"`
	Message Message `json:"message"`
}
