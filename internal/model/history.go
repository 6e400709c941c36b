package model

import (
	"time"

	"gorm.io/gorm"
)

type History struct {
	gorm.Model
	Copyset  string        `gorm:"not null;index"`
	Source   string        `gorm:"not null"`
	Target   string        `gorm:"not null"`
	Action   ActionKind    `gorm:"not null"`
	Outcome  Outcome       `gorm:"not null"`
	Reason   string
	Attempts int
	ErrMsg   string
	Duration time.Duration
	SyncedAt time.Time `gorm:"not null;index"`
}
