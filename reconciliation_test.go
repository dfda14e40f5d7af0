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

package finlens

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finlens/finlens/internal/apierror"
	redis_db "github.com/finlens/finlens/internal/redis-db"
	"github.com/finlens/finlens/model"
)

func invoiceRow(invoice string) model.TabularRow {
	return model.TabularRow{"invoice": invoice}
}

func TestFuzzRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"INV-001", "INV-001", 100},
		{"INV-001", "inv-001", 100},
		{"", "", 100},
		{"ABCDEFGHIJ", "ABCDEFGXYZ", 70},
		{"ABCDEFG", "ABCDEXY", 71},
		{"INV-001", "XYZ-999", 14},
		// all substitutions: each replaced rune costs 1, never 2
		{"AAAA", "ZZZZ", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, fuzzRatio(c.a, c.b), "%q vs %q", c.a, c.b)
	}
}

func TestMatchInvoicesIdenticalIsPotentialMatch(t *testing.T) {
	candidates := MatchInvoices(
		[]model.TabularRow{invoiceRow("INV-001")},
		[]model.TabularRow{invoiceRow("INV-001")},
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, 100, candidates[0].ConfidenceScore)
	assert.Equal(t, model.MatchStatusPotential, candidates[0].Status)
}

func TestMatchThresholdIsExclusive(t *testing.T) {
	// Scores land exactly on 70 and just above it.
	candidates := MatchInvoices(
		[]model.TabularRow{invoiceRow("ABCDEFGHIJ"), invoiceRow("ABCDEFG")},
		[]model.TabularRow{invoiceRow("ABCDEFGXYZ"), invoiceRow("ABCDEXY")},
	)

	require.Len(t, candidates, 4)
	assert.Equal(t, 70, candidates[0].ConfidenceScore)
	assert.Equal(t, model.MatchStatusNone, candidates[0].Status)
	assert.Equal(t, 71, candidates[3].ConfidenceScore)
	assert.Equal(t, model.MatchStatusPotential, candidates[3].Status)
}

func TestMatchInvoicesRowMajorOrder(t *testing.T) {
	dataset1 := []model.TabularRow{invoiceRow("A"), invoiceRow("B")}
	dataset2 := []model.TabularRow{invoiceRow("X"), invoiceRow("Y"), invoiceRow("Z")}

	candidates := MatchInvoices(dataset1, dataset2)

	require.Len(t, candidates, 6)
	wantPairs := [][2]string{
		{"A", "X"}, {"A", "Y"}, {"A", "Z"},
		{"B", "X"}, {"B", "Y"}, {"B", "Z"},
	}
	for i, pair := range wantPairs {
		assert.Equal(t, pair[0], candidates[i].Dataset1Invoice, "pair %d", i)
		assert.Equal(t, pair[1], candidates[i].Dataset2Invoice, "pair %d", i)
	}
}

func TestMatchInvoicesEmptyDatasets(t *testing.T) {
	assert.Empty(t, MatchInvoices(nil, []model.TabularRow{invoiceRow("A")}))
	assert.Empty(t, MatchInvoices([]model.TabularRow{invoiceRow("A")}, nil))
}

func TestMatchInvoicesMissingInvoiceColumn(t *testing.T) {
	candidates := MatchInvoices(
		[]model.TabularRow{{"reference": "r1"}},
		[]model.TabularRow{invoiceRow("INV-001")},
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, "", candidates[0].Dataset1Invoice)
	assert.Equal(t, model.MatchStatusNone, candidates[0].Status)
}

func TestMatchInvoicesParallelPreservesOrder(t *testing.T) {
	gofakeit.Seed(11)

	dataset1 := make([]model.TabularRow, 2*parallelRowThreshold)
	for i := range dataset1 {
		dataset1[i] = invoiceRow(fmt.Sprintf("INV-%s", gofakeit.LetterN(6)))
	}
	dataset2 := make([]model.TabularRow, 5)
	for i := range dataset2 {
		dataset2[i] = invoiceRow(fmt.Sprintf("INV-%s", gofakeit.LetterN(6)))
	}

	candidates := MatchInvoices(dataset1, dataset2)

	require.Len(t, candidates, len(dataset1)*len(dataset2))
	for i, row1 := range dataset1 {
		for j, row2 := range dataset2 {
			assert.Equal(t, scorePair(row1, row2), candidates[i*len(dataset2)+j])
		}
	}
}

func TestSummarizeMatches(t *testing.T) {
	summary, err := SummarizeMatches([]model.MatchCandidate{
		{ConfidenceScore: 80, Status: model.MatchStatusPotential},
		{ConfidenceScore: 60, Status: model.MatchStatusNone},
	})

	require.NoError(t, err)
	assert.InDelta(t, 70.0, summary.AverageScore, 0.0001)
	assert.Equal(t, 1, summary.MatchedCount)
}

func TestSummarizeMatchesEmpty(t *testing.T) {
	_, err := SummarizeMatches(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestExportMatchesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := ExportMatchesCSV(&buf, []model.MatchCandidate{
		{Dataset1Invoice: "INV-001", Dataset2Invoice: "INV-001", ConfidenceScore: 100, Status: model.MatchStatusPotential},
		{Dataset1Invoice: "INV-001", Dataset2Invoice: "XYZ-999", ConfidenceScore: 43, Status: model.MatchStatusNone},
	})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Dataset1_Invoice,Dataset2_Invoice,Confidence_Score,Match_Status", lines[0])
	assert.Equal(t, "INV-001,INV-001,100,Potential Match", lines[1])
	assert.Equal(t, "INV-001,XYZ-999,43,No Match", lines[2])
}

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		filename string
		want     string
	}{
		{"csv extension", []byte("invoice\nINV-001\n"), "data.csv", "csv"},
		{"xlsx extension", []byte{0x50, 0x4B, 0x03, 0x04}, "data.xlsx", "xlsx"},
		{"json extension", []byte(`[{"invoice":"INV-001"}]`), "data.json", "json"},
		{"json content", []byte(`[{"invoice":"INV-001"}]`), "data.bin", "json"},
		{"xlsx content", []byte("PK\x03\x04rest"), "data.bin", "xlsx"},
		{"csv content", []byte("invoice,amount\nINV-001,12.00\n"), "data.bin", "csv"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := detectFileType(c.data, c.filename)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestDetectFileTypeUnsupported(t *testing.T) {
	_, err := detectFileType([]byte("no commas here\njust text\n"), "data.bin")

	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrUnsupportedMedia, apiErr.Code)
}

func TestUploadDataset(t *testing.T) {
	service, datasource := newTestService(t)

	var storedUpload *model.DatasetUpload
	var storedRecords []model.DatasetRecord
	datasource.On("RecordDatasetUpload", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			storedUpload = args.Get(1).(*model.DatasetUpload)
			storedRecords = args.Get(2).([]model.DatasetRecord)
		}).
		Return(nil)

	csvData := "invoice,amount\nINV-001,120.00\nINV-002,80.50\n"
	upload, err := service.UploadDataset(context.Background(), "dataset1", strings.NewReader(csvData), "invoices.csv")

	require.NoError(t, err)
	assert.Equal(t, upload, storedUpload)
	assert.Equal(t, 2, upload.RecordCount)
	require.Len(t, storedRecords, 2)
	assert.Equal(t, "INV-001", storedRecords[0].Invoice)
	assert.Equal(t, 0, storedRecords[0].RowIndex)
	assert.Equal(t, upload.UploadID, storedRecords[1].UploadID)
	assert.True(t, strings.HasPrefix(upload.UploadID, "upload_"))
}

func TestUploadDatasetUnsupportedFormat(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.UploadDataset(context.Background(), "dataset1",
		strings.NewReader("plain text without structure"), "notes.bin")

	require.Error(t, err)
}

func TestStartReconciliationUnknownUpload(t *testing.T) {
	service, datasource := newTestService(t)

	datasource.On("GetDatasetUpload", mock.Anything, "upload_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "dataset upload not found", nil))

	_, err := service.StartReconciliation(context.Background(), "upload_missing", "upload_2")

	require.Error(t, err)
	datasource.AssertNotCalled(t, "RecordReconciliation", mock.Anything, mock.Anything)
}

func TestStartReconciliationConflictsWhileRunning(t *testing.T) {
	service, datasource := newTestService(t)

	server := miniredis.RunT(t)
	redisClient, err := redis_db.NewRedisClient(server.Addr())
	require.NoError(t, err)
	service.redis = redisClient.Client()

	datasource.On("GetDatasetUpload", mock.Anything, mock.Anything).
		Return(&model.DatasetUpload{UploadID: "upload_1"}, nil)

	// Another run already holds the lock for this pair.
	require.NoError(t, server.Set("reconlock:upload_1:upload_2", "other-run"))

	_, err = service.StartReconciliation(context.Background(), "upload_1", "upload_2")

	require.Error(t, err)
	var apiErr apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	datasource.AssertNotCalled(t, "RecordReconciliation", mock.Anything, mock.Anything)
}

func TestProcessReconciliationCompletesRun(t *testing.T) {
	service, datasource := newTestService(t)

	reconciliation := &model.Reconciliation{
		ReconciliationID:   "recon_test",
		PrimaryUploadID:    "upload_1",
		ComparisonUploadID: "upload_2",
		Status:             StatusStarted,
		StartedAt:          time.Now(),
	}

	records1 := []model.DatasetRecord{
		{RowIndex: 0, Invoice: "INV-001", Row: invoiceRow("INV-001")},
	}
	records2 := []model.DatasetRecord{
		{RowIndex: 0, Invoice: "INV-001", Row: invoiceRow("INV-001")},
		{RowIndex: 1, Invoice: "XYZ-999", Row: invoiceRow("XYZ-999")},
	}

	datasource.On("UpdateReconciliationStatus", mock.Anything, "recon_test", StatusInProgress).Return(nil)
	datasource.On("GetDatasetRecords", mock.Anything, "upload_1").Return(records1, nil)
	datasource.On("GetDatasetRecords", mock.Anything, "upload_2").Return(records2, nil)

	var storedCandidates []model.MatchCandidate
	datasource.On("RecordMatchCandidates", mock.Anything, "recon_test", mock.Anything).
		Run(func(args mock.Arguments) {
			storedCandidates = args.Get(2).([]model.MatchCandidate)
		}).
		Return(nil)
	datasource.On("FinalizeReconciliation", mock.Anything, "recon_test", StatusCompleted,
		1, 2, mock.AnythingOfType("float64"), mock.AnythingOfType("time.Time")).Return(nil)

	err := service.processReconciliation(context.Background(), reconciliation)

	require.NoError(t, err)
	require.Len(t, storedCandidates, 2)
	assert.Equal(t, model.MatchStatusPotential, storedCandidates[0].Status)
	assert.Equal(t, StatusCompleted, reconciliation.Status)
	require.NotNil(t, reconciliation.CompletedAt)
	datasource.AssertExpectations(t)
}

func TestProcessReconciliationFailsOnLoadError(t *testing.T) {
	service, datasource := newTestService(t)

	reconciliation := &model.Reconciliation{
		ReconciliationID:   "recon_test",
		PrimaryUploadID:    "upload_1",
		ComparisonUploadID: "upload_2",
		Status:             StatusStarted,
	}

	datasource.On("UpdateReconciliationStatus", mock.Anything, "recon_test", StatusInProgress).Return(nil)
	datasource.On("GetDatasetRecords", mock.Anything, "upload_1").
		Return(nil, errors.New("connection reset"))
	datasource.On("UpdateReconciliationStatus", mock.Anything, "recon_test", StatusFailed).Return(nil)

	err := service.processReconciliation(context.Background(), reconciliation)

	require.Error(t, err)
	datasource.AssertCalled(t, "UpdateReconciliationStatus", mock.Anything, "recon_test", StatusFailed)
}
