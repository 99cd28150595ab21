package models

import (
	"github.com/SherClockHolmes/webpush-go"

	"shifted/store"
)

// PushSubscription links a user to a browser push endpoint.
type PushSubscription struct {
	ID     string               `json:"id"`
	UserID string               `json:"userId"`
	Sub    webpush.Subscription `json:"sub"`
}

func (p PushSubscription) Fields() store.Fields {
	return store.Fields{
		"userId":   p.UserID,
		"endpoint": p.Sub.Endpoint,
		"p256dh":   p.Sub.Keys.P256dh,
		"auth":     p.Sub.Keys.Auth,
	}
}

func PushSubscriptionFromDoc(doc store.Doc) (PushSubscription, bool) {
	p := PushSubscription{ID: doc.ID}
	var ok bool
	if p.UserID, ok = doc.Fields["userId"].(string); !ok || p.UserID == "" {
		return PushSubscription{}, false
	}
	if p.Sub.Endpoint, ok = doc.Fields["endpoint"].(string); !ok || p.Sub.Endpoint == "" {
		return PushSubscription{}, false
	}
	p.Sub.Keys.P256dh, _ = doc.Fields["p256dh"].(string)
	p.Sub.Keys.Auth, _ = doc.Fields["auth"].(string)
	return p, true
}
