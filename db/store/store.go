// Package store is the document store gateway: full-replace writes, reads by id and
// bounded collection scans, over bbolt, Firestore or memory.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// TimeLayout is fixed-width so that lexicographic and chronological order agree.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

type DB interface {
	Write(ctx context.Context, collection string, fields map[string]any, id string) (string, error)
	Get(ctx context.Context, collection string, id string) (*Document, error)
	List(ctx context.Context, collection string, opts ListOptions) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

type ListOptions struct {
	Limit   int
	OrderBy string
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return defaultListLimit
	}
	return o.Limit
}

func NewID() string {
	return uuid.New().String()
}

// Timestamp formats t the way documents store creation times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func validate(op string, collection string, id string, requireID bool) error {
	if collection == "" {
		return &StoreError{Op: op, Collection: collection, Err: &InvalidKeyError{Key: collection, Reason: "collection cannot be empty"}}
	}
	if requireID && id == "" {
		return &StoreError{Op: op, Collection: collection, Err: &InvalidKeyError{Key: id, Reason: "id cannot be empty"}}
	}
	return nil
}

// cloneFields round-trips through JSON so stored values never alias caller maps
// and every backend hands back the same value types.
func cloneFields(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	clone := map[string]any{}
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// sortAndLimit orders documents by field, most recent (largest) first. Documents
// without the field go last; ties keep their id order.
func sortAndLimit(documents []Document, opts ListOptions) []Document {
	sort.SliceStable(documents, func(i, j int) bool {
		return documents[i].ID < documents[j].ID
	})

	if opts.OrderBy != "" {
		sort.SliceStable(documents, func(i, j int) bool {
			left, leftOK := documents[i].Data[opts.OrderBy]
			right, rightOK := documents[j].Data[opts.OrderBy]
			if !leftOK || !rightOK {
				return leftOK && !rightOK
			}
			return compareValues(left, right) > 0
		})
	}

	if limit := opts.limit(); len(documents) > limit {
		documents = documents[:limit]
	}

	return documents
}

func compareValues(left any, right any) int {
	if leftTime, ok := asTime(left); ok {
		if rightTime, ok := asTime(right); ok {
			return leftTime.Compare(rightTime)
		}
	}

	if leftNumber, ok := asNumber(left); ok {
		if rightNumber, ok := asNumber(right); ok {
			switch {
			case leftNumber < rightNumber:
				return -1
			case leftNumber > rightNumber:
				return 1
			default:
				return 0
			}
		}
	}

	leftString, _ := left.(string)
	rightString, _ := right.(string)
	switch {
	case leftString < rightString:
		return -1
	case leftString > rightString:
		return 1
	default:
		return 0
	}
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
