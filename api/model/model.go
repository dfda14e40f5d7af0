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

// Package model defines the API request and response shapes. Extracted fields
// that were not found are rendered as the display string "Not Found" here, at
// the presentation boundary, and nowhere deeper.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/finlens/finlens/model"
)

// NotFoundDisplay is how an absent field is printed in responses and reports.
const NotFoundDisplay = "Not Found"

// StartReconciliationRequest asks for a match run between two stored uploads.
type StartReconciliationRequest struct {
	PrimaryUploadID    string `json:"primary_upload_id"`
	ComparisonUploadID string `json:"comparison_upload_id"`
}

func (r *StartReconciliationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PrimaryUploadID, validation.Required),
		validation.Field(&r.ComparisonUploadID, validation.Required),
	)
}

// DocumentAnalysisResponse is the API shape of a stored document analysis.
// NormalizedTotal carries the parsed total_amount without separators, fixed
// to two decimal places; it is omitted when the raw field is absent or does
// not parse as an amount.
type DocumentAnalysisResponse struct {
	AnalysisID      string            `json:"analysis_id"`
	Filename        string            `json:"filename"`
	Fields          map[string]string `json:"fields"`
	NormalizedTotal string            `json:"normalized_total,omitempty"`
	PageCount       int               `json:"page_count"`
	TableCount      int               `json:"table_count"`
	TextLength      int               `json:"text_length"`
	Table           model.Table       `json:"table"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ToDocumentAnalysisResponse converts a stored analysis, rendering absent
// fields as the display string.
func ToDocumentAnalysisResponse(analysis *model.DocumentAnalysis) DocumentAnalysisResponse {
	fields := make(map[string]string, len(model.FieldNames()))
	for name, field := range analysis.Record.Fields() {
		fields[name] = field.OrElse(NotFoundDisplay)
	}
	response := DocumentAnalysisResponse{
		AnalysisID: analysis.AnalysisID,
		Filename:   analysis.Filename,
		Fields:     fields,
		PageCount:  analysis.PageCount,
		TableCount: analysis.TableCount,
		TextLength: analysis.TextLength,
		Table:      analysis.Combined,
		CreatedAt:  analysis.CreatedAt,
	}
	if amount, ok := analysis.Record.AmountValue(); ok {
		response.NormalizedTotal = amount.StringFixed(2)
	}
	return response
}

// UploadDatasetResponse acknowledges a stored dataset.
type UploadDatasetResponse struct {
	UploadID    string    `json:"upload_id"`
	Source      string    `json:"source"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToUploadDatasetResponse(upload *model.DatasetUpload) UploadDatasetResponse {
	return UploadDatasetResponse{
		UploadID:    upload.UploadID,
		Source:      upload.Source,
		Filename:    upload.Filename,
		RecordCount: upload.RecordCount,
		CreatedAt:   upload.CreatedAt,
	}
}

// ReconciliationResponse is the API shape of a run and its aggregates.
type ReconciliationResponse struct {
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

func ToReconciliationResponse(rec *model.Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ReconciliationID:   rec.ReconciliationID,
		PrimaryUploadID:    rec.PrimaryUploadID,
		ComparisonUploadID: rec.ComparisonUploadID,
		Status:             rec.Status,
		PairCount:          rec.PairCount,
		MatchedCount:       rec.MatchedCount,
		AverageScore:       rec.AverageScore,
		StartedAt:          rec.StartedAt,
		CompletedAt:        rec.CompletedAt,
	}
}

func ToReconciliationResponses(recs []*model.Reconciliation) []ReconciliationResponse {
	responses := make([]ReconciliationResponse, len(recs))
	for i, rec := range recs {
		responses[i] = ToReconciliationResponse(rec)
	}
	return responses
}

// MatchCandidateResponse is one scored pair with its display status.
type MatchCandidateResponse struct {
	Dataset1Invoice string `json:"dataset1_invoice"`
	Dataset2Invoice string `json:"dataset2_invoice"`
	ConfidenceScore int    `json:"confidence_score"`
	MatchStatus     string `json:"match_status"`
}

func ToMatchCandidateResponses(candidates []model.MatchCandidate) []MatchCandidateResponse {
	responses := make([]MatchCandidateResponse, len(candidates))
	for i, candidate := range candidates {
		responses[i] = MatchCandidateResponse{
			Dataset1Invoice: candidate.Dataset1Invoice,
			Dataset2Invoice: candidate.Dataset2Invoice,
			ConfidenceScore: candidate.ConfidenceScore,
			MatchStatus:     candidate.Status.Display(),
		}
	}
	return responses
}
