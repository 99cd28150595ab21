package chat

const idSeparator = "_"

// DeriveConversationID maps an unordered pair of user ids to the
// stable id of their conversation: the pair sorted lexicographically
// and joined with "_". Commutative and collision-free for ids that do
// not contain the separator.
func DeriveConversationID(userA, userB string) (string, error) {
	if userA == "" || userB == "" || userA == userB {
		return "", ErrInvalidParticipant
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + idSeparator + userB, nil
}

// IsParticipantID reports whether userID is one of the pair encoded in
// a derived conversation id. Only valid for ids produced by
// DeriveConversationID over separator-free user ids.
func IsParticipantID(conversationID, userID string) bool {
	if userID == "" || len(conversationID) <= len(userID)+1 {
		return false
	}
	return conversationID[:len(userID)+1] == userID+idSeparator ||
		conversationID[len(conversationID)-len(userID)-1:] == idSeparator+userID
}
