package models

import (
	"time"

	"shifted/store"
)

// Question is one forum thread about a specific vehicle.
type Question struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creatorId"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        string    `json:"year"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (q Question) Fields() store.Fields {
	return store.Fields{
		"title":       q.Title,
		"description": q.Description,
		"creatorId":   q.CreatorID,
		"make":        q.Make,
		"model":       q.Model,
		"year":        q.Year,
		"category":    q.Category,
		"createdAt":   q.CreatedAt,
	}
}

func QuestionFromDoc(doc store.Doc) (Question, bool) {
	q := Question{ID: doc.ID}
	var ok bool
	if q.Title, ok = doc.Fields["title"].(string); !ok || q.Title == "" {
		return Question{}, false
	}
	if q.CreatorID, ok = doc.Fields["creatorId"].(string); !ok || q.CreatorID == "" {
		return Question{}, false
	}
	q.Description, _ = doc.Fields["description"].(string)
	q.Make, _ = doc.Fields["make"].(string)
	q.Model, _ = doc.Fields["model"].(string)
	q.Year, _ = doc.Fields["year"].(string)
	q.Category, _ = doc.Fields["category"].(string)
	if created, ok := doc.Fields["createdAt"].(time.Time); ok {
		q.CreatedAt = created
	}
	return q, true
}

// Answer belongs to a question's answers sub-collection.
type Answer struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creatorId"`
	Text      string    `json:"text"`
	Upvotes   int       `json:"upvotes"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a Answer) Fields() store.Fields {
	return store.Fields{
		"creatorId": a.CreatorID,
		"text":      a.Text,
		"upvotes":   a.Upvotes,
		"createdAt": a.CreatedAt,
	}
}

func AnswerFromDoc(doc store.Doc) (Answer, bool) {
	a := Answer{ID: doc.ID}
	var ok bool
	if a.Text, ok = doc.Fields["text"].(string); !ok || a.Text == "" {
		return Answer{}, false
	}
	a.CreatorID, _ = doc.Fields["creatorId"].(string)
	a.Upvotes = int(floatField(doc.Fields["upvotes"]))
	if created, ok := doc.Fields["createdAt"].(time.Time); ok {
		a.CreatedAt = created
	}
	return a, true
}
