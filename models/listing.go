package models

import (
	"time"

	"shifted/store"
)

// Listing is one marketplace item.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	Category    string    `json:"category"`
	SellerID    string    `json:"sellerId"`
	SellerName  string    `json:"sellerName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (l Listing) Fields() store.Fields {
	return store.Fields{
		"title":       l.Title,
		"description": l.Description,
		"price":       l.Price,
		"images":      l.Images,
		"category":    l.Category,
		"sellerId":    l.SellerID,
		"sellerName":  l.SellerName,
		"createdAt":   l.CreatedAt,
	}
}

// ListingFromDoc decodes a listing document. Records missing title or
// seller are malformed and reported false so lists can drop them.
func ListingFromDoc(doc store.Doc) (Listing, bool) {
	l := Listing{ID: doc.ID}
	var ok bool
	if l.Title, ok = doc.Fields["title"].(string); !ok || l.Title == "" {
		return Listing{}, false
	}
	if l.SellerID, ok = doc.Fields["sellerId"].(string); !ok || l.SellerID == "" {
		return Listing{}, false
	}
	l.Description, _ = doc.Fields["description"].(string)
	l.Category, _ = doc.Fields["category"].(string)
	l.SellerName, _ = doc.Fields["sellerName"].(string)
	l.Price = floatField(doc.Fields["price"])
	l.Images = stringSliceField(doc.Fields["images"])
	if created, ok := doc.Fields["createdAt"].(time.Time); ok {
		l.CreatedAt = created
	}
	return l, true
}

func floatField(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringSliceField(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
