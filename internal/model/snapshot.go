package model

import "time"

type MappingState string

const (
	StateUnsynced     MappingState = "UNSYNCED"
	StateSynced       MappingState = "SYNCED"
	StateSourceAbsent MappingState = "SOURCE_ABSENT"
)

// NextState applies a result to the per-Mapping state machine. Failures leave
// the prior state in place.
func NextState(prev MappingState, result SyncResult) MappingState {
	switch result.Outcome {
	case OutcomeCopied, OutcomeUnchanged:
		return StateSynced
	case OutcomeRemoved, OutcomeAbsent, OutcomeSourceAbsent:
		return StateSourceAbsent
	default:
		return prev
	}
}

type MappingSnapshot struct {
	Copyset   string       `json:"copyset"`
	Source    string       `json:"source"`
	Target    string       `json:"target"`
	State     MappingState `json:"state"`
	Synced    int          `json:"synced"`
	Removed   int          `json:"removed"`
	Failed    int          `json:"failed"`
	LastError string       `json:"last_error,omitempty"`
	LastSync  *time.Time   `json:"last_sync"`
}
