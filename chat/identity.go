package chat

// Identity supplies the authenticated caller to controllers:
// the stable user id for conversation membership and the display
// identity stamped onto outgoing messages.
type Identity interface {
	CurrentUserID() (string, bool)
	CurrentDisplayIdentity() string
}

// StaticIdentity is an Identity fixed at construction, one per
// authenticated connection or request.
type StaticIdentity struct {
	UserID  string
	Display string
}

func (s StaticIdentity) CurrentUserID() (string, bool) {
	return s.UserID, s.UserID != ""
}

func (s StaticIdentity) CurrentDisplayIdentity() string {
	if s.Display == "" {
		return UnknownName
	}
	return s.Display
}
