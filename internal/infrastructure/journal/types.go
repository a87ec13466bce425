package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityOrder        = "order"
	EntitySubscription = "subscription"
)

// Item is a write that could not reach Postgres and waits to be
// replayed once the connection recovers.
type Item struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
