// Package models defines the data structures produced by a poll cycle.
// These structures are serialized to JSON by the CLI.
package models

import "time"

// Sample is one metric value read from an active monitor.
type Sample struct {
	Monitor   string      `json:"monitor"`
	Source    string      `json:"source,omitempty"`
	Name      string      `json:"name"`
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Failure records a monitor that could not be read during a poll cycle.
type Failure struct {
	Monitor string `json:"monitor"`
	Error   string `json:"error"`
}

// Batch is the result of polling every active monitor once.
type Batch struct {
	Hostname    string    `json:"hostname,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
	Samples     []Sample  `json:"samples"`
	Failures    []Failure `json:"failures,omitempty"`
}
