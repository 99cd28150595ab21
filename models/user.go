package models

import (
	"time"

	"shifted/store"
)

// User is an account plus its profile fields, one document in the
// users collection.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName joins the name fields, falling back to the email so chat
// messages always carry a display-safe identity.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

func (u User) Fields() store.Fields {
	return store.Fields{
		"email":        u.Email,
		"firstName":    u.FirstName,
		"lastName":     u.LastName,
		"passwordHash": u.PasswordHash,
		"createdAt":    u.CreatedAt,
	}
}

func UserFromDoc(doc store.Doc) User {
	u := User{ID: doc.ID}
	u.Email, _ = doc.Fields["email"].(string)
	u.FirstName, _ = doc.Fields["firstName"].(string)
	u.LastName, _ = doc.Fields["lastName"].(string)
	u.PasswordHash, _ = doc.Fields["passwordHash"].(string)
	if created, ok := doc.Fields["createdAt"].(time.Time); ok {
		u.CreatedAt = created
	}
	return u
}
