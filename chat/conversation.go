package chat

import (
	"time"

	"shifted/store"
)

const (
	conversationsCollection = "conversations"
	usersCollection         = "users"
)

// Conversation is a two-party thread. ID is always reproducible from
// Participants alone (see DeriveConversationID); LastMessage is a
// denormalized projection of the message log's tail and only
// eventually consistent with it.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Counterpart returns the participant that is not userID.
func (c Conversation) Counterpart(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func conversationPath(id string) string {
	return conversationsCollection + "/" + id
}

// decodeConversation maps a raw document into a Conversation. The
// second return is false for malformed records, which are dropped from
// emitted lists rather than surfaced as errors.
func decodeConversation(doc store.Doc) (Conversation, bool) {
	participants, ok := stringSlice(doc.Fields["participants"])
	if !ok || len(participants) != 2 || participants[0] == "" || participants[1] == "" {
		return Conversation{}, false
	}

	conv := Conversation{
		ID:           doc.ID,
		Participants: participants,
	}
	if last, ok := doc.Fields["lastMessage"].(string); ok {
		conv.LastMessage = last
	}
	if created, ok := doc.Fields["createdAt"].(time.Time); ok {
		conv.CreatedAt = created
	}
	return conv, true
}

func stringSlice(v interface{}) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
