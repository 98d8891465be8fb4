package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound reports a point lookup that matched nothing. Callers decide the
// fallback; the store never invents empty records.
var ErrNotFound = errors.New("store: record not found")

// Key addresses one record by partition and sort key.
type Key struct {
	PK string
	SK string
}

// Record is the single-table row shape. LSIPK and GSI1PK/GSI1SK feed the
// local and secondary indexes; GSI1SK doubles as the zero-padded sortable
// metric for leaderboard queries. Data is an opaque JSON document.
type Record struct {
	PK        string
	SK        string
	LSIPK     string
	GSI1PK    string
	GSI1SK    string
	Data      json.RawMessage
	RealName  string
	Games     int
	MatchID   string
	UpdatedAt time.Time
}

// Query describes a range or prefix read. Exactly one of Prefix or Low/High
// should be set; Index selects the lsi or gsi1 access path.
type Query struct {
	Index      string // "", "lsi" or "gsi1"
	PK         string
	Prefix     string
	Low        string
	High       string
	Limit      int
	Descending bool
}

// Store is the durable key-value collaborator. Implementations must treat
// Put as an idempotent upsert.
type Store interface {
	Get(ctx context.Context, pk, sk string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key Key) error
	Query(ctx context.Context, q Query) ([]Record, error)
	BatchGet(ctx context.Context, keys []Key) ([]Record, error)
	BatchWriter
}

// BatchWriter accepts one chunk of writes and reports the subset the backend
// refused. The Batcher retries only that subset.
type BatchWriter interface {
	WriteBatch(ctx context.Context, puts []Record, deletes []Key) (unprocessedPuts []Record, unprocessedDeletes []Key, err error)
}
