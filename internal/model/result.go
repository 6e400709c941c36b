package model

import "time"

type Outcome string

const (
	OutcomeCopied       Outcome = "COPIED"
	OutcomeUnchanged    Outcome = "UNCHANGED"
	OutcomeRemoved      Outcome = "REMOVED"
	OutcomeAbsent       Outcome = "ABSENT"
	OutcomeSourceAbsent Outcome = "SOURCE_ABSENT"
	OutcomeFailed       Outcome = "FAILED"
)

type SyncResult struct {
	Action   Action
	Outcome  Outcome
	Attempts int
	Started  time.Time
	Duration time.Duration
	Err      error
}
