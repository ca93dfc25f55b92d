package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Run describes one execution of the decomposition engine
type Run struct {
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`  // hash of the engine configuration
	Rows        int       `json:"rows"`
	FirstDate   time.Time `json:"first_date"`
	LastDate    time.Time `json:"last_date"`
	NaNRows     int       `json:"nan_rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateRunID creates a deterministic run ID
// Format: hash(fingerprint|rows|first|last)
// The same input and configuration always produce the same ID, so
// persisting a run twice is idempotent
func GenerateRunID(fingerprint string, rows int, first, last time.Time) string {
	data := fmt.Sprintf("%s|%d|%s|%s",
		fingerprint,
		rows,
		DayKey(first),
		DayKey(last),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// Fingerprint hashes an arbitrary configuration rendering
func Fingerprint(rendered string) string {
	hash := sha256.Sum256([]byte(rendered))
	return hex.EncodeToString(hash[:8])
}

// NewRun creates a Run with a generated ID
func NewRun(fingerprint string, t *Table, nanRows int) *Run {
	first, last := t.DateRange()
	return &Run{
		RunID:       GenerateRunID(fingerprint, t.Len(), first, last),
		Fingerprint: fingerprint,
		Rows:        t.Len(),
		FirstDate:   first,
		LastDate:    last,
		NaNRows:     nanRows,
		CreatedAt:   time.Now(),
	}
}
