/*
Copyright 2025 Finlens Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import "time"

// MatchStatus is the binary classification of a scored pair.
type MatchStatus string

const (
	MatchStatusPotential MatchStatus = "potential_match"
	MatchStatusNone      MatchStatus = "no_match"
)

// Display renders the status the way reports print it.
func (s MatchStatus) Display() string {
	if s == MatchStatusPotential {
		return "Potential Match"
	}
	return "No Match"
}

// MatchCandidate is one scored (row1, row2) pair. Candidates are created once
// per pair during a single match run and are immutable afterwards.
type MatchCandidate struct {
	Dataset1Invoice string      `json:"dataset1_invoice"`
	Dataset2Invoice string      `json:"dataset2_invoice"`
	ConfidenceScore int         `json:"confidence_score"`
	Status          MatchStatus `json:"match_status"`
}

// MatchSummary aggregates a candidate sequence.
type MatchSummary struct {
	AverageScore float64 `json:"average_score"`
	MatchedCount int     `json:"matched_count"`
}

// DatasetUpload records one uploaded dataset.
type DatasetUpload struct {
	ID          int64     `json:"-"`
	UploadID    string    `json:"upload_id"`
	Source      string    `json:"source"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DatasetRecord is one stored row of an uploaded dataset. Invoice holds the
// coerced value of the row's invoice column; Row keeps the full original row.
type DatasetRecord struct {
	UploadID string     `json:"upload_id"`
	RowIndex int        `json:"row_index"`
	Invoice  string     `json:"invoice"`
	Row      TabularRow `json:"row"`
}

// Reconciliation is one persisted reconciliation run between two uploads.
type Reconciliation struct {
	ID                 int64      `json:"-"`
	ReconciliationID   string     `json:"reconciliation_id"`
	PrimaryUploadID    string     `json:"primary_upload_id"`
	ComparisonUploadID string     `json:"comparison_upload_id"`
	Status             string     `json:"status"`
	PairCount          int        `json:"pair_count"`
	MatchedCount       int        `json:"matched_count"`
	AverageScore       float64    `json:"average_score"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}
