package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunState is the orchestrator's working memory for one batch execution.
// Classified and Results are aligned with Documents: each fan-out task
// writes only its own slot.
type RunState struct {
	BatchID       uuid.UUID         `json:"batch_id"`
	Phase         Phase             `json:"phase"`
	Routing       Routing           `json:"routing"`
	Documents     []DocumentRef     `json:"documents"`
	Classified    []*Classification `json:"classified"`
	Results       []*ResultRecord   `json:"results"`
	Stages        []Stage           `json:"stages,omitempty"`
	StageIndex    int               `json:"stage_index"`
	Errors        []string          `json:"errors,omitempty"`
	Summary       *BatchSummary     `json:"summary,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Done          bool              `json:"done"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewRunState creates the initial state for a batch.
func NewRunState(batchID uuid.UUID, docs []Document, routing Routing) *RunState {
	refs := make([]DocumentRef, len(docs))
	for i, d := range docs {
		refs[i] = d.Ref()
	}

	return &RunState{
		BatchID:    batchID,
		Phase:      PhaseStart,
		Routing:    routing,
		Documents:  refs,
		Classified: make([]*Classification, len(docs)),
		Results:    make([]*ResultRecord, len(docs)),
	}
}

// DecodeRunState parses a checkpoint produced by json.Marshal(*RunState).
func DecodeRunState(data []byte) (*RunState, error) {
	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode run state: %w", err)
	}
	return &rs, nil
}

// Terminal reports whether the state is Done or Failed.
func (rs *RunState) Terminal() bool {
	return rs.Phase == PhaseDone || rs.Phase == PhaseFailed
}

// Present returns the distinct recognized categories classified so far.
func (rs *RunState) Present() []Category {
	seen := make(map[Category]bool)
	present := make([]Category, 0, len(priority))
	for _, c := range rs.Classified {
		if c == nil || !c.Category.Recognized() || seen[c.Category] {
			continue
		}
		seen[c.Category] = true
		present = append(present, c.Category)
	}
	return present
}

// Records returns the result records produced so far, in document order.
func (rs *RunState) Records() []ResultRecord {
	records := make([]ResultRecord, 0, len(rs.Results))
	for _, r := range rs.Results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

// align reorders a restored state to match docs. Every document must
// appear exactly once in both.
func (rs *RunState) align(docs []Document) error {
	if len(rs.Documents) != len(docs) ||
		len(rs.Classified) != len(rs.Documents) ||
		len(rs.Results) != len(rs.Documents) {
		return fmt.Errorf("%w: checkpoint holds %d documents, request has %d",
			ErrUnknownDocument, len(rs.Documents), len(docs))
	}

	index := make(map[uuid.UUID]int, len(rs.Documents))
	for i, ref := range rs.Documents {
		index[ref.ID] = i
	}

	refs := make([]DocumentRef, len(docs))
	classified := make([]*Classification, len(docs))
	results := make([]*ResultRecord, len(docs))

	for i, d := range docs {
		j, ok := index[d.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, d.ID)
		}
		refs[i] = d.Ref()
		classified[i] = rs.Classified[j]
		results[i] = rs.Results[j]
	}

	rs.Documents = refs
	rs.Classified = classified
	rs.Results = results
	return nil
}
