package pipeline

import "time"

// RunState is the final disposition of a sync run.
type RunState string

const (
	// RunDone means every pass completed and nothing was quarantined.
	RunDone RunState = "Done"
	// RunPartialSuccess means at least one pass aborted or at least one row
	// was quarantined; completed work is committed and checkpointed.
	RunPartialSuccess RunState = "PartialSuccess"
	// RunCancelled means cooperative cancellation stopped the run between
	// pages; the in-flight flush completed and checkpointed first.
	RunCancelled RunState = "Cancelled"
	// RunAborted means the relational store failed mid-run.
	RunAborted RunState = "Aborted"
)

// EntityCounts tallies one entity's rows through the pipeline stages.
type EntityCounts struct {
	Fetched     int `json:"fetched"`
	Mapped      int `json:"mapped"`
	Upserted    int `json:"upserted"`
	Quarantined int `json:"quarantined"`
}

// PassError records why a pass aborted.
type PassError struct {
	Pass string
	Err  error
}

// Summary is the run artifact: per-entity counts, duration, the checkpoint
// cursor each pass ended on, every quarantined row id, and the final state.
type Summary struct {
	State          RunState
	Duration       time.Duration
	Counts         map[string]*EntityCounts
	Checkpoints    map[string]string
	QuarantinedIDs []int64
	PassErrors     []PassError
}

func newSummary() *Summary {
	return &Summary{
		State:       RunDone,
		Counts:      map[string]*EntityCounts{},
		Checkpoints: map[string]string{},
	}
}

func (s *Summary) counts(entity string) *EntityCounts {
	c, ok := s.Counts[entity]
	if !ok {
		c = &EntityCounts{}
		s.Counts[entity] = c
	}
	return c
}

// demote lowers Done to PartialSuccess; stronger states stay put.
func (s *Summary) demote() {
	if s.State == RunDone {
		s.State = RunPartialSuccess
	}
}
