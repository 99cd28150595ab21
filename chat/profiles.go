package chat

import (
	"context"
	"errors"
	"strings"

	"shifted/store"
)

// UnknownName is the sentinel rendered whenever a display name cannot
// be resolved.
const UnknownName = "Unknown"

// Profile carries the name fields of a user record. Either may be
// empty.
type Profile struct {
	FirstName string
	LastName  string
}

// DisplayName joins the non-empty name parts, falling back to
// UnknownName when both are missing.
func (p Profile) DisplayName() string {
	parts := make([]string, 0, 2)
	if p.FirstName != "" {
		parts = append(parts, p.FirstName)
	}
	if p.LastName != "" {
		parts = append(parts, p.LastName)
	}
	if len(parts) == 0 {
		return UnknownName
	}
	return strings.Join(parts, " ")
}

// ProfileLookup resolves user profile fields. Implementations may
// return a zero Profile for users without a record.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// StoreProfiles resolves profiles from the users collection of the
// same document store the chat data lives in.
type StoreProfiles struct {
	store store.Store
}

func NewStoreProfiles(st store.Store) *StoreProfiles {
	return &StoreProfiles{store: st}
}

func (p *StoreProfiles) GetProfile(ctx context.Context, userID string) (Profile, error) {
	doc, err := p.store.Get(ctx, usersCollection+"/"+userID)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, err
	}

	var profile Profile
	if first, ok := doc.Fields["firstName"].(string); ok {
		profile.FirstName = first
	}
	if last, ok := doc.Fields["lastName"].(string); ok {
		profile.LastName = last
	}
	return profile, nil
}
