package model

import (
	"strings"
	"time"
)

// EventKind is a bitmask of the raw notification kinds the engine reacts to.
type EventKind uint8

const (
	KindCreate EventKind = 1 << iota
	KindModify
	KindDelete
	KindOverflow
)

func (k EventKind) Has(other EventKind) bool {
	return k&other != 0
}

func (k EventKind) String() string {
	var parts []string
	if k.Has(KindCreate) {
		parts = append(parts, "CREATE")
	}
	if k.Has(KindModify) {
		parts = append(parts, "MODIFY")
	}
	if k.Has(KindDelete) {
		parts = append(parts, "DELETE")
	}
	if k.Has(KindOverflow) {
		parts = append(parts, "OVERFLOW")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// FileEvent is one raw notification. Dir is the watched directory the event
// was reported for; an OVERFLOW with an empty Dir concerns every watch.
type FileEvent struct {
	Dir       string
	Name      string
	Kind      EventKind
	Timestamp time.Time
}

type ActionKind string

const (
	ActionSync   ActionKind = "SYNC"
	ActionRemove ActionKind = "REMOVE"
)

// Action is a resolved unit of work for the executor.
type Action struct {
	Kind    ActionKind
	Mapping *Mapping
	Reason  string
	Queued  time.Time
}
