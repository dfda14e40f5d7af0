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
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/finlens/finlens/config"
)

// Singleton connection shared by the process.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	return GetDBConnection(configuration)
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens the Postgres connection and bootstraps the schema.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	if err := db.Ping(); err != nil {
		logrus.WithError(err).Error("database connection failed")
		return nil, errors.Wrap(err, "pinging database")
	}
	if err := BootstrapSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// BootstrapSchema creates the tables the service depends on. Statements are
// idempotent, so repeated startup is safe.
func BootstrapSchema(db *sql.DB) error {
	if err := createDocumentAnalysisTable(db); err != nil {
		return err
	}
	if err := createDatasetUploadTable(db); err != nil {
		return err
	}
	if err := createDatasetRecordTable(db); err != nil {
		return err
	}
	if err := createReconciliationTable(db); err != nil {
		return err
	}
	return createMatchCandidateTable(db)
}

// createDocumentAnalysisTable creates the PostgreSQL table for document analyses.
// Extracted fields are nullable; NULL encodes "probed, not found".
func createDocumentAnalysisTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS document_analyses (
			id SERIAL PRIMARY KEY,
			analysis_id TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			invoice_number TEXT,
			invoice_date TEXT,
			total_amount TEXT,
			due_date TEXT,
			vendor TEXT,
			client TEXT,
			page_count INT NOT NULL,
			table_count INT NOT NULL,
			text_length INT NOT NULL,
			combined_table JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return errors.Wrap(err, "creating document_analyses table")
}

// createDatasetUploadTable creates the PostgreSQL table for dataset uploads.
func createDatasetUploadTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_uploads (
			id SERIAL PRIMARY KEY,
			upload_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			filename TEXT NOT NULL,
			record_count INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return errors.Wrap(err, "creating dataset_uploads table")
}

// createDatasetRecordTable creates the PostgreSQL table for dataset rows.
func createDatasetRecordTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_records (
			id SERIAL PRIMARY KEY,
			upload_id TEXT NOT NULL REFERENCES dataset_uploads(upload_id),
			row_index INT NOT NULL,
			invoice TEXT NOT NULL,
			row JSONB NOT NULL,
			UNIQUE (upload_id, row_index)
		)
	`)
	return errors.Wrap(err, "creating dataset_records table")
}

// createReconciliationTable creates the PostgreSQL table for reconciliation runs.
func createReconciliationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reconciliations (
			id SERIAL PRIMARY KEY,
			reconciliation_id TEXT NOT NULL UNIQUE,
			primary_upload_id TEXT NOT NULL REFERENCES dataset_uploads(upload_id),
			comparison_upload_id TEXT NOT NULL REFERENCES dataset_uploads(upload_id),
			status TEXT NOT NULL,
			pair_count INT NOT NULL DEFAULT 0,
			matched_count INT NOT NULL DEFAULT 0,
			average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP
		)
	`)
	return errors.Wrap(err, "creating reconciliations table")
}

// createMatchCandidateTable creates the PostgreSQL table for scored pairs.
// pair_index preserves the row-major candidate order of the match run.
func createMatchCandidateTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS match_candidates (
			id SERIAL PRIMARY KEY,
			reconciliation_id TEXT NOT NULL REFERENCES reconciliations(reconciliation_id),
			pair_index INT NOT NULL,
			dataset1_invoice TEXT NOT NULL,
			dataset2_invoice TEXT NOT NULL,
			confidence_score INT NOT NULL,
			match_status TEXT NOT NULL,
			UNIQUE (reconciliation_id, pair_index)
		)
	`)
	return errors.Wrap(err, "creating match_candidates table")
}
