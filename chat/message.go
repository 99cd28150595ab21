package chat

import (
	"time"

	"shifted/store"
)

// Message is one append-only entry in a conversation's log. Timestamp
// is the sole ordering key. Sender is the author's display identity,
// not necessarily their stable user id.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
}

func messagesPath(conversationID string) string {
	return conversationPath(conversationID) + "/messages"
}

// decodeMessage maps a raw document into a Message. Records missing
// text or a timestamp are malformed and get dropped; a missing sender
// falls back to the unknown sentinel so lists stay renderable.
func decodeMessage(doc store.Doc) (Message, bool) {
	text, ok := doc.Fields["text"].(string)
	if !ok || text == "" {
		return Message{}, false
	}
	ts, ok := doc.Fields["timestamp"].(time.Time)
	if !ok {
		return Message{}, false
	}

	msg := Message{
		ID:        doc.ID,
		Text:      text,
		Timestamp: ts,
		Sender:    UnknownName,
	}
	if sender, ok := doc.Fields["sender"].(string); ok && sender != "" {
		msg.Sender = sender
	}
	return msg, true
}
