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

func TestRecordDocumentAnalysis(t *testing.T) {
	ds, mock := newTestDatasource(t)

	analysis := &model.DocumentAnalysis{
		AnalysisID:  "analysis_1",
		Filename:    "invoice.pdf",
		ContentHash: "abc123",
		Record: model.InvoiceRecord{
			InvoiceNumber: model.FoundField("INV-2024-001"),
			Date:          model.FoundField("01/02/2024"),
			TotalAmount:   model.FoundField("1,234.56"),
			DueDate:       model.NotFound,
			Vendor:        model.FoundField("Acme Corp"),
			Client:        model.FoundField("Beta LLC"),
		},
		PageCount:  2,
		TableCount: 1,
		TextLength: 640,
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO document_analyses").
		WithArgs(analysis.AnalysisID, analysis.Filename, analysis.ContentHash,
			"INV-2024-001", "01/02/2024", "1,234.56", nil, "Acme Corp", "Beta LLC",
			2, 1, 640, sqlmock.AnyArg(), analysis.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ds.RecordDocumentAnalysis(context.Background(), analysis)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func documentColumns() []string {
	return []string{
		"id", "analysis_id", "filename", "content_hash", "invoice_number",
		"invoice_date", "total_amount", "due_date", "vendor", "client",
		"page_count", "table_count", "text_length", "combined_table", "created_at",
	}
}

func TestGetDocumentAnalysis(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows(documentColumns()).
		AddRow(1, "analysis_1", "invoice.pdf", "abc123", "INV-2024-001",
			"01/02/2024", "1,234.56", nil, "Acme Corp", "Beta LLC",
			2, 1, 640, []byte(`{"columns":["invoice"],"rows":[{"invoice":"INV-001"}]}`), time.Now())

	mock.ExpectQuery("SELECT .* FROM document_analyses").
		WithArgs("analysis_1").
		WillReturnRows(rows)

	analysis, err := ds.GetDocumentAnalysis(context.Background(), "analysis_1")

	require.NoError(t, err)
	assert.Equal(t, model.FoundField("INV-2024-001"), analysis.Record.InvoiceNumber)
	assert.Equal(t, model.NotFound, analysis.Record.DueDate)
	assert.Equal(t, 2, analysis.PageCount)
	assert.Equal(t, 1, analysis.TableCount)
	require.Len(t, analysis.Combined.Rows, 1)
	assert.Equal(t, "INV-001", analysis.Combined.Rows[0]["invoice"])
}

func TestGetDocumentAnalysisNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM document_analyses").
		WithArgs("analysis_missing").
		WillReturnRows(sqlmock.NewRows(documentColumns()))

	_, err := ds.GetDocumentAnalysis(context.Background(), "analysis_missing")

	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetDocumentAnalysisByHash(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows(documentColumns()).
		AddRow(1, "analysis_1", "invoice.pdf", "abc123", "INV-2024-001",
			nil, nil, nil, nil, nil, 1, 0, 120, []byte(`{}`), time.Now())

	mock.ExpectQuery("SELECT .* FROM document_analyses").
		WithArgs("abc123").
		WillReturnRows(rows)

	analysis, err := ds.GetDocumentAnalysisByHash(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "analysis_1", analysis.AnalysisID)
	assert.False(t, analysis.Record.Date.Found)
	assert.False(t, analysis.Record.Vendor.Found)
}
