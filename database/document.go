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
	"database/sql"
	"encoding/json"

	"github.com/finlens/finlens/internal/apierror"
	"github.com/finlens/finlens/model"
	"go.opentelemetry.io/otel"
)

// fieldToNull maps an extracted field to its column value; a not-found field
// is stored as NULL.
func fieldToNull(f model.Field) sql.NullString {
	return sql.NullString{String: f.Value, Valid: f.Found}
}

func nullToField(ns sql.NullString) model.Field {
	if !ns.Valid {
		return model.NotFound
	}
	return model.FoundField(ns.String)
}

// RecordDocumentAnalysis inserts a new document analysis into the database.
func (d Datasource) RecordDocumentAnalysis(ctx context.Context, analysis *model.DocumentAnalysis) error {
	ctx, span := otel.Tracer("document.database").Start(ctx, "Saving document analysis to db")
	defer span.End()

	combinedJSON, err := json.Marshal(analysis.Combined)
	if err != nil {
		return err
	}

	_, err = d.Conn.ExecContext(ctx,
		`INSERT INTO document_analyses(
			analysis_id, filename, content_hash, invoice_number, invoice_date,
			total_amount, due_date, vendor, client, page_count, table_count,
			text_length, combined_table, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		analysis.AnalysisID, analysis.Filename, analysis.ContentHash,
		fieldToNull(analysis.Record.InvoiceNumber), fieldToNull(analysis.Record.Date),
		fieldToNull(analysis.Record.TotalAmount), fieldToNull(analysis.Record.DueDate),
		fieldToNull(analysis.Record.Vendor), fieldToNull(analysis.Record.Client),
		analysis.PageCount, analysis.TableCount, analysis.TextLength,
		combinedJSON, analysis.CreatedAt,
	)

	return err
}

// GetDocumentAnalysis retrieves a document analysis by its ID.
func (d Datasource) GetDocumentAnalysis(ctx context.Context, analysisID string) (*model.DocumentAnalysis, error) {
	ctx, span := otel.Tracer("document.database").Start(ctx, "Fetching document analysis from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, analysis_id, filename, content_hash, invoice_number, invoice_date,
			total_amount, due_date, vendor, client, page_count, table_count,
			text_length, combined_table, created_at
		FROM document_analyses
		WHERE analysis_id = $1
	`, analysisID)

	return scanDocumentAnalysis(row)
}

// GetDocumentAnalysisByHash retrieves the most recent analysis of a document
// with the given content hash.
func (d Datasource) GetDocumentAnalysisByHash(ctx context.Context, contentHash string) (*model.DocumentAnalysis, error) {
	ctx, span := otel.Tracer("document.database").Start(ctx, "Fetching document analysis by content hash")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, analysis_id, filename, content_hash, invoice_number, invoice_date,
			total_amount, due_date, vendor, client, page_count, table_count,
			text_length, combined_table, created_at
		FROM document_analyses
		WHERE content_hash = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, contentHash)

	return scanDocumentAnalysis(row)
}

func scanDocumentAnalysis(row *sql.Row) (*model.DocumentAnalysis, error) {
	analysis := &model.DocumentAnalysis{}
	var invoiceNumber, invoiceDate, totalAmount, dueDate, vendor, client sql.NullString
	var combinedJSON []byte

	err := row.Scan(
		&analysis.ID, &analysis.AnalysisID, &analysis.Filename, &analysis.ContentHash,
		&invoiceNumber, &invoiceDate, &totalAmount, &dueDate, &vendor, &client,
		&analysis.PageCount, &analysis.TableCount, &analysis.TextLength,
		&combinedJSON, &analysis.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "document analysis not found", nil)
		}
		return nil, err
	}

	analysis.Record = model.InvoiceRecord{
		InvoiceNumber: nullToField(invoiceNumber),
		Date:          nullToField(invoiceDate),
		TotalAmount:   nullToField(totalAmount),
		DueDate:       nullToField(dueDate),
		Vendor:        nullToField(vendor),
		Client:        nullToField(client),
	}

	if len(combinedJSON) > 0 {
		if err := json.Unmarshal(combinedJSON, &analysis.Combined); err != nil {
			return nil, err
		}
	}

	return analysis, nil
}
