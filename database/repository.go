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

package database

import (
	"context"
	"time"

	"github.com/finlens/finlens/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	document       // Document-analysis persistence
	dataset        // Dataset upload persistence
	reconciliation // Reconciliation run persistence
}

// document defines methods for persisting document analyses.
type document interface {
	RecordDocumentAnalysis(ctx context.Context, analysis *model.DocumentAnalysis) error
	GetDocumentAnalysis(ctx context.Context, analysisID string) (*model.DocumentAnalysis, error)
	GetDocumentAnalysisByHash(ctx context.Context, contentHash string) (*model.DocumentAnalysis, error)
}

// dataset defines methods for persisting uploaded datasets.
type dataset interface {
	RecordDatasetUpload(ctx context.Context, upload *model.DatasetUpload, records []model.DatasetRecord) error
	GetDatasetUpload(ctx context.Context, uploadID string) (*model.DatasetUpload, error)
	GetDatasetRecords(ctx context.Context, uploadID string) ([]model.DatasetRecord, error)
}

// reconciliation defines methods for persisting reconciliation runs and their
// scored candidates.
type reconciliation interface {
	RecordReconciliation(ctx context.Context, rec *model.Reconciliation) error
	GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error)
	UpdateReconciliationStatus(ctx context.Context, id string, status string) error
	FinalizeReconciliation(ctx context.Context, id string, status string, matchedCount, pairCount int, averageScore float64, completedAt time.Time) error
	GetReconciliationsByUploadID(ctx context.Context, uploadID string) ([]*model.Reconciliation, error)
	RecordMatchCandidates(ctx context.Context, reconciliationID string, candidates []model.MatchCandidate) error
	GetMatchCandidates(ctx context.Context, reconciliationID string) ([]model.MatchCandidate, error)
}
