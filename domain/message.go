package domain

import "time"

type MessageKind string

const MessageText MessageKind = "text"

// Message is an immutable, append-only chat event. Its lifetime is bound
// to the chat it belongs to. A nil Timestamp means the store has not yet
// resolved the server-assigned time of the write.
type Message struct {
	ID             string
	Sender         string
	SenderUsername string
	Text           string
	Timestamp      *time.Time
	Kind           MessageKind
}
