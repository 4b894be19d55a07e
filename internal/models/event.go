package models

import "time"

// AnswerEvent describes one answered question for analytics consumers.
type AnswerEvent struct {
	Question        string      `json:"question"`
	UserID          string      `json:"user_id,omitempty"`
	Kind            OutcomeKind `json:"kind"`
	Confidence      float64     `json:"confidence"`
	MatchedQuestion string      `json:"matched_question,omitempty"`
	LatencyMS       float64     `json:"latency_ms"`
	SnapshotID      string      `json:"snapshot_id,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}
