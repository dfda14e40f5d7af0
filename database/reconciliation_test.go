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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens/finlens/internal/apierror"
	"github.com/finlens/finlens/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Datasource{Conn: db}, mock
}

func TestRecordReconciliation(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rec := &model.Reconciliation{
		ReconciliationID:   "recon_1",
		PrimaryUploadID:    "upload_1",
		ComparisonUploadID: "upload_2",
		Status:             "started",
		StartedAt:          time.Now(),
	}

	mock.ExpectExec("INSERT INTO reconciliations").
		WithArgs(rec.ReconciliationID, rec.PrimaryUploadID, rec.ComparisonUploadID,
			rec.Status, rec.PairCount, rec.MatchedCount, rec.AverageScore,
			rec.StartedAt, rec.CompletedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ds.RecordReconciliation(context.Background(), rec)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReconciliation(t *testing.T) {
	ds, mock := newTestDatasource(t)

	startedAt := time.Now()
	completedAt := startedAt.Add(time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "reconciliation_id", "primary_upload_id", "comparison_upload_id",
		"status", "pair_count", "matched_count", "average_score", "started_at", "completed_at",
	}).AddRow(1, "recon_1", "upload_1", "upload_2", "completed", 6, 2, 75.5, startedAt, completedAt)

	mock.ExpectQuery("SELECT .* FROM reconciliations").
		WithArgs("recon_1").
		WillReturnRows(rows)

	rec, err := ds.GetReconciliation(context.Background(), "recon_1")

	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, 6, rec.PairCount)
	assert.Equal(t, 2, rec.MatchedCount)
	assert.InDelta(t, 75.5, rec.AverageScore, 0.001)
	require.NotNil(t, rec.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReconciliationNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM reconciliations").
		WithArgs("recon_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := ds.GetReconciliation(context.Background(), "recon_missing")

	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestFinalizeReconciliation(t *testing.T) {
	ds, mock := newTestDatasource(t)

	completedAt := time.Now()
	mock.ExpectExec("UPDATE reconciliations").
		WithArgs("recon_1", "completed", 2, 6, 75.5, completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.FinalizeReconciliation(context.Background(), "recon_1", "completed", 2, 6, 75.5, completedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMatchCandidates(t *testing.T) {
	ds, mock := newTestDatasource(t)

	candidates := []model.MatchCandidate{
		{Dataset1Invoice: "INV-001", Dataset2Invoice: "INV-001", ConfidenceScore: 100, Status: model.MatchStatusPotential},
		{Dataset1Invoice: "INV-001", Dataset2Invoice: "INV-999", ConfidenceScore: 43, Status: model.MatchStatusNone},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO match_candidates")
	prep.ExpectExec().
		WithArgs("recon_1", 0, "INV-001", "INV-001", 100, "potential_match").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("recon_1", 1, "INV-001", "INV-999", 43, "no_match").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := ds.RecordMatchCandidates(context.Background(), "recon_1", candidates)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMatchCandidatesPreservesOrder(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"dataset1_invoice", "dataset2_invoice", "confidence_score", "match_status"}).
		AddRow("INV-001", "INV-001", 100, "potential_match").
		AddRow("INV-001", "INV-999", 43, "no_match")

	mock.ExpectQuery("SELECT .* FROM match_candidates").
		WithArgs("recon_1").
		WillReturnRows(rows)

	candidates, err := ds.GetMatchCandidates(context.Background(), "recon_1")

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, model.MatchStatusPotential, candidates[0].Status)
	assert.Equal(t, 43, candidates[1].ConfidenceScore)
}
