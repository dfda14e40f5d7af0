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
	"time"

	"github.com/finlens/finlens/internal/apierror"
	"github.com/finlens/finlens/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// RecordReconciliation inserts a new reconciliation record into the database.
func (d Datasource) RecordReconciliation(ctx context.Context, rec *model.Reconciliation) error {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Saving reconciliation to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO reconciliations(
			reconciliation_id, primary_upload_id, comparison_upload_id, status,
			pair_count, matched_count, average_score, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ReconciliationID, rec.PrimaryUploadID, rec.ComparisonUploadID, rec.Status,
		rec.PairCount, rec.MatchedCount, rec.AverageScore, rec.StartedAt, rec.CompletedAt,
	)

	return err
}

// GetReconciliation retrieves a reconciliation record by its ID.
func (d Datasource) GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error) {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Fetching reconciliation from db")
	defer span.End()

	rec := &model.Reconciliation{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, reconciliation_id, primary_upload_id, comparison_upload_id, status,
			pair_count, matched_count, average_score, started_at, completed_at
		FROM reconciliations
		WHERE reconciliation_id = $1
	`, id).Scan(
		&rec.ID, &rec.ReconciliationID, &rec.PrimaryUploadID, &rec.ComparisonUploadID,
		&rec.Status, &rec.PairCount, &rec.MatchedCount, &rec.AverageScore,
		&rec.StartedAt, &rec.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "reconciliation not found", nil)
		}
		return nil, err
	}

	return rec, nil
}

// UpdateReconciliationStatus updates the status of a running reconciliation.
func (d Datasource) UpdateReconciliationStatus(ctx context.Context, id string, status string) error {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Updating reconciliation status")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE reconciliations
		SET status = $2
		WHERE reconciliation_id = $1
	`, id, status)

	return err
}

// FinalizeReconciliation records the terminal status and aggregate figures of
// a finished run.
func (d Datasource) FinalizeReconciliation(ctx context.Context, id string, status string, matchedCount, pairCount int, averageScore float64, completedAt time.Time) error {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Finalizing reconciliation")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE reconciliations
		SET status = $2, matched_count = $3, pair_count = $4, average_score = $5, completed_at = $6
		WHERE reconciliation_id = $1
	`, id, status, matchedCount, pairCount, averageScore, completedAt)

	return err
}

// GetReconciliationsByUploadID retrieves all runs that used the upload on
// either side, newest first.
func (d Datasource) GetReconciliationsByUploadID(ctx context.Context, uploadID string) ([]*model.Reconciliation, error) {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Fetching reconciliations by upload ID")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, reconciliation_id, primary_upload_id, comparison_upload_id, status,
			pair_count, matched_count, average_score, started_at, completed_at
		FROM reconciliations
		WHERE primary_upload_id = $1 OR comparison_upload_id = $1
		ORDER BY started_at DESC
	`, uploadID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	var reconciliations []*model.Reconciliation
	for rows.Next() {
		rec := &model.Reconciliation{}
		err = rows.Scan(
			&rec.ID, &rec.ReconciliationID, &rec.PrimaryUploadID, &rec.ComparisonUploadID,
			&rec.Status, &rec.PairCount, &rec.MatchedCount, &rec.AverageScore,
			&rec.StartedAt, &rec.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		reconciliations = append(reconciliations, rec)
	}

	return reconciliations, rows.Err()
}

// RecordMatchCandidates stores the scored pairs of a run in one transaction.
// pair_index preserves the order the pairs were scored in.
func (d Datasource) RecordMatchCandidates(ctx context.Context, reconciliationID string, candidates []model.MatchCandidate) error {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Saving match candidates to db")
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

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_candidates(
			reconciliation_id, pair_index, dataset1_invoice, dataset2_invoice,
			confidence_score, match_status
		) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return err
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	for i, candidate := range candidates {
		_, err := stmt.ExecContext(ctx, reconciliationID, i,
			candidate.Dataset1Invoice, candidate.Dataset2Invoice,
			candidate.ConfidenceScore, candidate.Status)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetMatchCandidates retrieves the scored pairs of a run in scoring order.
func (d Datasource) GetMatchCandidates(ctx context.Context, reconciliationID string) ([]model.MatchCandidate, error) {
	ctx, span := otel.Tracer("reconciliation.database").Start(ctx, "Fetching match candidates from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT dataset1_invoice, dataset2_invoice, confidence_score, match_status
		FROM match_candidates
		WHERE reconciliation_id = $1
		ORDER BY pair_index ASC
	`, reconciliationID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	var candidates []model.MatchCandidate
	for rows.Next() {
		var candidate model.MatchCandidate
		err = rows.Scan(
			&candidate.Dataset1Invoice, &candidate.Dataset2Invoice,
			&candidate.ConfidenceScore, &candidate.Status,
		)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	return candidates, rows.Err()
}
