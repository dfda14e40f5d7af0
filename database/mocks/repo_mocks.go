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

// Package mocks provides a testify mock of the data source interface.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/finlens/finlens/model"
)

// MockDataSource is a mock implementation of database.IDataSource.
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) RecordDocumentAnalysis(ctx context.Context, analysis *model.DocumentAnalysis) error {
	args := m.Called(ctx, analysis)
	return args.Error(0)
}

func (m *MockDataSource) GetDocumentAnalysis(ctx context.Context, analysisID string) (*model.DocumentAnalysis, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentAnalysis), args.Error(1)
}

func (m *MockDataSource) GetDocumentAnalysisByHash(ctx context.Context, contentHash string) (*model.DocumentAnalysis, error) {
	args := m.Called(ctx, contentHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentAnalysis), args.Error(1)
}

func (m *MockDataSource) RecordDatasetUpload(ctx context.Context, upload *model.DatasetUpload, records []model.DatasetRecord) error {
	args := m.Called(ctx, upload, records)
	return args.Error(0)
}

func (m *MockDataSource) GetDatasetUpload(ctx context.Context, uploadID string) (*model.DatasetUpload, error) {
	args := m.Called(ctx, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DatasetUpload), args.Error(1)
}

func (m *MockDataSource) GetDatasetRecords(ctx context.Context, uploadID string) ([]model.DatasetRecord, error) {
	args := m.Called(ctx, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DatasetRecord), args.Error(1)
}

func (m *MockDataSource) RecordReconciliation(ctx context.Context, rec *model.Reconciliation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockDataSource) GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reconciliation), args.Error(1)
}

func (m *MockDataSource) UpdateReconciliationStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) FinalizeReconciliation(ctx context.Context, id string, status string, matchedCount, pairCount int, averageScore float64, completedAt time.Time) error {
	args := m.Called(ctx, id, status, matchedCount, pairCount, averageScore, completedAt)
	return args.Error(0)
}

func (m *MockDataSource) GetReconciliationsByUploadID(ctx context.Context, uploadID string) ([]*model.Reconciliation, error) {
	args := m.Called(ctx, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reconciliation), args.Error(1)
}

func (m *MockDataSource) RecordMatchCandidates(ctx context.Context, reconciliationID string, candidates []model.MatchCandidate) error {
	args := m.Called(ctx, reconciliationID, candidates)
	return args.Error(0)
}

func (m *MockDataSource) GetMatchCandidates(ctx context.Context, reconciliationID string) ([]model.MatchCandidate, error) {
	args := m.Called(ctx, reconciliationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MatchCandidate), args.Error(1)
}
