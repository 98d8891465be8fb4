package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store for tests. It honors the same index
// semantics as the SQLite implementation and can simulate the partial batch
// acceptance that a provisioned backend exhibits under write pressure.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]Record

	// AcceptPerBatch, when positive, caps how many items each WriteBatch
	// call applies; the rest come back unprocessed.
	AcceptPerBatch int

	// WriteBatchSizes records the total item count of every WriteBatch call,
	// in order.
	WriteBatchSizes []int

	// FailWrites makes every WriteBatch call return an error.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

func (m *MemoryStore) Get(_ context.Context, pk, sk string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[Key{PK: pk, SK: sk}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[Key{PK: rec.PK, SK: rec.SK}] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recs []Record
	for _, rec := range m.records {
		pk, sk := recordIndexKeys(rec, q.Index)
		if pk != q.PK {
			continue
		}
		if q.Prefix != "" && !strings.HasPrefix(sk, q.Prefix) {
			continue
		}
		if (q.Low != "" || q.High != "") && (sk < q.Low || sk > q.High) {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		_, si := recordIndexKeys(recs[i], q.Index)
		_, sj := recordIndexKeys(recs[j], q.Index)
		if q.Descending {
			return si > sj
		}
		return si < sj
	})

	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	return recs, nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []Key) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []Record
	for _, key := range keys {
		if rec, ok := m.records[key]; ok {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (m *MemoryStore) WriteBatch(_ context.Context, puts []Record, deletes []Key) ([]Record, []Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteBatchSizes = append(m.WriteBatchSizes, len(puts)+len(deletes))
	if m.FailWrites {
		return puts, deletes, context.DeadlineExceeded
	}

	budget := len(puts) + len(deletes)
	if m.AcceptPerBatch > 0 && m.AcceptPerBatch < budget {
		budget = m.AcceptPerBatch
	}

	for i, rec := range puts {
		if budget == 0 {
			return puts[i:], deletes, nil
		}
		m.records[Key{PK: rec.PK, SK: rec.SK}] = rec
		budget--
	}
	for i, key := range deletes {
		if budget == 0 {
			return nil, deletes[i:], nil
		}
		delete(m.records, key)
		budget--
	}
	return nil, nil, nil
}

// Len reports how many records the store holds.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func recordIndexKeys(rec Record, index string) (string, string) {
	switch index {
	case "lsi":
		return rec.PK, rec.LSIPK
	case "gsi1":
		return rec.GSI1PK, rec.GSI1SK
	default:
		return rec.PK, rec.SK
	}
}
