package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryCheckpoints is a CheckpointStore held in process memory.
// States are stored in their JSON form so callers never share slices.
type MemoryCheckpoints struct {
	mu     sync.Mutex
	states map[uuid.UUID][]byte
}

// NewMemoryCheckpoints creates an empty in-memory checkpoint store.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{states: make(map[uuid.UUID][]byte)}
}

func (m *MemoryCheckpoints) Load(_ context.Context, batchID uuid.UUID) (*RunState, error) {
	m.mu.Lock()
	data, ok := m.states[batchID]
	m.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return DecodeRunState(data)
}

func (m *MemoryCheckpoints) Save(_ context.Context, state *RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.BatchID] = data
	return nil
}

// MemoryStore is a Persistence implementation that keeps results,
// summaries, and statuses in memory.
type MemoryStore struct {
	mu        sync.Mutex
	results   map[uuid.UUID]ResultRecord
	summaries map[uuid.UUID]BatchSummary
	statuses  map[uuid.UUID]Status
	errors    map[uuid.UUID]string
}

// NewMemoryStore creates an empty in-memory persistence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:   make(map[uuid.UUID]ResultRecord),
		summaries: make(map[uuid.UUID]BatchSummary),
		statuses:  make(map[uuid.UUID]Status),
		errors:    make(map[uuid.UUID]string),
	}
}

func (m *MemoryStore) SaveResult(_ context.Context, documentID uuid.UUID, record ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[documentID] = record
	return nil
}

func (m *MemoryStore) SaveSummary(_ context.Context, batchID uuid.UUID, summary BatchSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[batchID] = summary
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, documentID uuid.UUID, status Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[documentID] = status
	m.errors[documentID] = errMsg
	return nil
}

// Result returns the saved record for a document.
func (m *MemoryStore) Result(documentID uuid.UUID) (ResultRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[documentID]
	return r, ok
}

// Summary returns the saved summary for a batch.
func (m *MemoryStore) Summary(batchID uuid.UUID) (BatchSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[batchID]
	return s, ok
}

// Status returns the last status and error message set for a document.
func (m *MemoryStore) Status(documentID uuid.UUID) (Status, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[documentID], m.errors[documentID]
}
