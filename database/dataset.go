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
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// RecordDatasetUpload inserts the upload and all of its rows in one
// transaction, so a partially stored dataset is never visible.
func (d Datasource) RecordDatasetUpload(ctx context.Context, upload *model.DatasetUpload, records []model.DatasetRecord) error {
	ctx, span := otel.Tracer("dataset.database").Start(ctx, "Saving dataset upload to db")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logrus.Error(err)
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dataset_uploads(upload_id, source, filename, record_count, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		upload.UploadID, upload.Source, upload.Filename, upload.RecordCount, upload.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_records(upload_id, row_index, invoice, row)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	for _, record := range records {
		rowJSON, err := json.Marshal(record.Row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, upload.UploadID, record.RowIndex, record.Invoice, rowJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetDatasetUpload retrieves a dataset upload by its ID.
func (d Datasource) GetDatasetUpload(ctx context.Context, uploadID string) (*model.DatasetUpload, error) {
	ctx, span := otel.Tracer("dataset.database").Start(ctx, "Fetching dataset upload from db")
	defer span.End()

	upload := &model.DatasetUpload{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, upload_id, source, filename, record_count, created_at
		FROM dataset_uploads
		WHERE upload_id = $1
	`, uploadID).Scan(
		&upload.ID, &upload.UploadID, &upload.Source, &upload.Filename,
		&upload.RecordCount, &upload.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "dataset upload not found", nil)
		}
		return nil, err
	}

	return upload, nil
}

// GetDatasetRecords retrieves the rows of an upload in their original order.
func (d Datasource) GetDatasetRecords(ctx context.Context, uploadID string) ([]model.DatasetRecord, error) {
	ctx, span := otel.Tracer("dataset.database").Start(ctx, "Fetching dataset records from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT upload_id, row_index, invoice, row
		FROM dataset_records
		WHERE upload_id = $1
		ORDER BY row_index ASC
	`, uploadID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	var records []model.DatasetRecord
	for rows.Next() {
		var record model.DatasetRecord
		var rowJSON []byte
		if err := rows.Scan(&record.UploadID, &record.RowIndex, &record.Invoice, &rowJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rowJSON, &record.Row); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
