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
	"encoding/csv"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"

	"github.com/finlens/finlens/internal/apierror"
	redlock "github.com/finlens/finlens/internal/lock"
	"github.com/finlens/finlens/internal/notification"
	"github.com/finlens/finlens/internal/tabular"
	"github.com/finlens/finlens/model"
)

const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MatchThreshold is the exclusive confidence bound: a pair scoring strictly
// above it is a potential match.
const MatchThreshold = 70

// parallelRowThreshold is the outer-dataset size above which the match run
// is partitioned across workers.
const parallelRowThreshold = 64

// runLockTTL outlives the background run timeout so the lock cannot expire
// under a run that is still making progress.
const runLockTTL = 15 * time.Minute

// ErrEmptyDataset is returned when asked to summarize zero candidates; a
// zero average over no pairs would be indistinguishable from a real zero.
var ErrEmptyDataset = errors.New("no match candidates to summarize")

// unitCostOptions makes every edit cost 1. The library default charges 2 for
// a substitution, which would double-count substitution-heavy pairs once the
// distance is normalized by the longer string.
var unitCostOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// fuzzRatio scores the similarity of two invoice identifiers in [0, 100].
// The comparison is case-insensitive; the score is the Levenshtein distance
// normalized by the longer string. Two empty strings are identical.
func fuzzRatio(a, b string) int {
	left := []rune(strings.ToLower(a))
	right := []rune(strings.ToLower(b))

	maxLen := len(left)
	if len(right) > maxLen {
		maxLen = len(right)
	}
	if maxLen == 0 {
		return 100
	}

	distance := levenshtein.DistanceForStrings(left, right, unitCostOptions)
	return int(math.Round(100 * (1 - float64(distance)/float64(maxLen))))
}

// scorePair builds the candidate for one (row1, row2) pair.
func scorePair(row1, row2 model.TabularRow) model.MatchCandidate {
	invoice1 := tabular.InvoiceValue(row1)
	invoice2 := tabular.InvoiceValue(row2)

	score := fuzzRatio(invoice1, invoice2)
	status := model.MatchStatusNone
	if score > MatchThreshold {
		status = model.MatchStatusPotential
	}

	return model.MatchCandidate{
		Dataset1Invoice: invoice1,
		Dataset2Invoice: invoice2,
		ConfidenceScore: score,
		Status:          status,
	}
}

// MatchInvoices scores every (row1, row2) pair of the two datasets. The
// result always has len(dataset1)×len(dataset2) candidates in row-major
// order: all pairs of dataset1's first row, then its second, and so on.
// Large outer datasets are partitioned across workers; the ordering
// guarantee holds on both paths.
func MatchInvoices(dataset1, dataset2 []model.TabularRow) []model.MatchCandidate {
	candidates := make([]model.MatchCandidate, len(dataset1)*len(dataset2))
	if len(candidates) == 0 {
		return candidates
	}

	if len(dataset1) < parallelRowThreshold {
		for i, row1 := range dataset1 {
			for j, row2 := range dataset2 {
				candidates[i*len(dataset2)+j] = scorePair(row1, row2)
			}
		}
		return candidates
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(dataset1) {
		workers = len(dataset1)
	}
	chunk := (len(dataset1) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(dataset1); start += chunk {
		end := start + chunk
		if end > len(dataset1) {
			end = len(dataset1)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				for j, row2 := range dataset2 {
					candidates[i*len(dataset2)+j] = scorePair(dataset1[i], row2)
				}
			}
		}(start, end)
	}
	wg.Wait()

	return candidates
}

// SummarizeMatches aggregates a candidate sequence into its mean confidence
// and potential-match count. An empty sequence is an ErrEmptyDataset, not a
// zero average.
func SummarizeMatches(candidates []model.MatchCandidate) (model.MatchSummary, error) {
	if len(candidates) == 0 {
		return model.MatchSummary{}, ErrEmptyDataset
	}

	total := 0
	matched := 0
	for _, candidate := range candidates {
		total += candidate.ConfidenceScore
		if candidate.Status == model.MatchStatusPotential {
			matched++
		}
	}

	return model.MatchSummary{
		AverageScore: float64(total) / float64(len(candidates)),
		MatchedCount: matched,
	}, nil
}

// detectFileType determines the dataset format, first by extension and then
// by sniffing the content.
func detectFileType(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv", nil
	case ".xlsx":
		return "xlsx", nil
	case ".json":
		return "json", nil
	}
	return detectByContent(data)
}

func detectByContent(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, "dataset file is empty", nil)
	}
	// XLSX files are zip archives.
	if bytes.HasPrefix(trimmed, []byte("PK\x03\x04")) {
		return "xlsx", nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return "json", nil
	}
	if looksLikeCSV(trimmed) {
		return "csv", nil
	}
	return "", apierror.NewAPIError(apierror.ErrUnsupportedMedia, "unsupported dataset format", nil)
}

// looksLikeCSV checks the first lines for a consistent comma count.
func looksLikeCSV(data []byte) bool {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 {
		return false
	}
	commas := strings.Count(lines[0], ",")
	if commas == 0 {
		return false
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, ",") != commas {
			return false
		}
	}
	return true
}

// parseDataset parses the raw bytes into a table using the detected format.
func parseDataset(data []byte, fileType string) (model.Table, error) {
	switch fileType {
	case "csv":
		return tabular.ParseCSV(bytes.NewReader(data))
	case "xlsx":
		return tabular.ParseXLSX(data)
	case "json":
		return tabular.ParseJSON(data)
	}
	return model.Table{}, apierror.NewAPIError(apierror.ErrUnsupportedMedia, "unsupported dataset format", nil)
}

// UploadDataset parses and stores one dataset for later reconciliation.
// Rows keep their file order; each row's invoice value is coerced from the
// table's invoice column, empty when the column is absent.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - source string: Which side the dataset is uploaded for, e.g. "dataset1".
// - reader io.Reader: The dataset content.
// - filename string: The uploaded file's name, used for format detection.
//
// Returns:
// - *model.DatasetUpload: The stored upload.
// - error: An error if parsing or persistence fails.
func (f *Finlens) UploadDataset(ctx context.Context, source string, reader io.Reader, filename string) (*model.DatasetUpload, error) {
	ctx, span := otel.Tracer("dataset.upload").Start(ctx, "Uploading dataset")
	defer span.End()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading dataset upload")
	}

	fileType, err := detectFileType(data, filename)
	if err != nil {
		return nil, err
	}

	table, err := parseDataset(data, fileType)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "parsing dataset failed", err.Error())
	}

	records := make([]model.DatasetRecord, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = model.DatasetRecord{
			RowIndex: i,
			Invoice:  tabular.InvoiceValue(row),
			Row:      row,
		}
	}

	upload := &model.DatasetUpload{
		UploadID:    model.GenerateUUIDWithSuffix("upload"),
		Source:      source,
		Filename:    filepath.Base(filename),
		RecordCount: len(records),
		CreatedAt:   time.Now(),
	}
	for i := range records {
		records[i].UploadID = upload.UploadID
	}

	if err := f.datasource.RecordDatasetUpload(ctx, upload, records); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"upload_id": upload.UploadID,
		"source":    source,
		"records":   upload.RecordCount,
	}).Info("dataset uploaded")

	return upload, nil
}

// StartReconciliation records a new run between two stored uploads and kicks
// off the matching in the background. The returned ID can be polled for the
// run's status and results.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - primaryUploadID string: The dataset1 upload.
// - comparisonUploadID string: The dataset2 upload.
//
// Returns:
// - string: The reconciliation ID.
// - error: An error if either upload is unknown or the run cannot be recorded.
func (f *Finlens) StartReconciliation(ctx context.Context, primaryUploadID, comparisonUploadID string) (string, error) {
	ctx, span := otel.Tracer("reconciliation.start").Start(ctx, "Starting reconciliation")
	defer span.End()

	if _, err := f.datasource.GetDatasetUpload(ctx, primaryUploadID); err != nil {
		return "", err
	}
	if _, err := f.datasource.GetDatasetUpload(ctx, comparisonUploadID); err != nil {
		return "", err
	}

	var locker *redlock.Locker
	if f.redis != nil {
		locker = redlock.ForRun(f.redis, primaryUploadID, comparisonUploadID)
		if err := locker.Lock(ctx, runLockTTL); err != nil {
			return "", apierror.NewAPIError(apierror.ErrConflict,
				"a reconciliation for these uploads is already running", err)
		}
	}

	reconciliation := &model.Reconciliation{
		ReconciliationID:   model.GenerateUUIDWithSuffix("recon"),
		PrimaryUploadID:    primaryUploadID,
		ComparisonUploadID: comparisonUploadID,
		Status:             StatusStarted,
		StartedAt:          time.Now(),
	}
	if err := f.datasource.RecordReconciliation(ctx, reconciliation); err != nil {
		if locker != nil {
			if unlockErr := locker.Unlock(ctx); unlockErr != nil {
				logrus.WithError(unlockErr).Warn("failed to release run lock")
			}
		}
		return "", err
	}

	// The run outlives the request; detach it from the caller's context.
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if locker != nil {
			defer func() {
				if unlockErr := locker.Unlock(runCtx); unlockErr != nil {
					logrus.WithError(unlockErr).Warn("failed to release run lock")
				}
			}()
		}
		if err := f.processReconciliation(runCtx, reconciliation); err != nil {
			logrus.Errorf("reconciliation %s failed: %v", reconciliation.ReconciliationID, err)
		}
	}()

	return reconciliation.ReconciliationID, nil
}

func (f *Finlens) processReconciliation(ctx context.Context, reconciliation *model.Reconciliation) error {
	ctx, span := otel.Tracer("reconciliation.process").Start(ctx, "Processing reconciliation")
	defer span.End()

	if err := f.datasource.UpdateReconciliationStatus(ctx, reconciliation.ReconciliationID, StatusInProgress); err != nil {
		return err
	}

	dataset1, err := f.loadDatasetRows(ctx, reconciliation.PrimaryUploadID)
	if err != nil {
		return f.failReconciliation(ctx, reconciliation, err)
	}
	dataset2, err := f.loadDatasetRows(ctx, reconciliation.ComparisonUploadID)
	if err != nil {
		return f.failReconciliation(ctx, reconciliation, err)
	}

	candidates := MatchInvoices(dataset1, dataset2)
	if err := f.datasource.RecordMatchCandidates(ctx, reconciliation.ReconciliationID, candidates); err != nil {
		return f.failReconciliation(ctx, reconciliation, err)
	}

	summary, err := SummarizeMatches(candidates)
	if err != nil && !errors.Is(err, ErrEmptyDataset) {
		return f.failReconciliation(ctx, reconciliation, err)
	}

	return f.finalizeReconciliation(ctx, reconciliation, candidates, summary)
}

func (f *Finlens) loadDatasetRows(ctx context.Context, uploadID string) ([]model.TabularRow, error) {
	records, err := f.datasource.GetDatasetRecords(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	rows := make([]model.TabularRow, len(records))
	for i, record := range records {
		rows[i] = record.Row
	}
	return rows, nil
}

func (f *Finlens) finalizeReconciliation(ctx context.Context, reconciliation *model.Reconciliation, candidates []model.MatchCandidate, summary model.MatchSummary) error {
	completedAt := time.Now()
	err := f.datasource.FinalizeReconciliation(ctx, reconciliation.ReconciliationID,
		StatusCompleted, summary.MatchedCount, len(candidates), summary.AverageScore, completedAt)
	if err != nil {
		return err
	}

	reconciliation.Status = StatusCompleted
	reconciliation.PairCount = len(candidates)
	reconciliation.MatchedCount = summary.MatchedCount
	reconciliation.AverageScore = summary.AverageScore
	reconciliation.CompletedAt = ptr.Time(completedAt)

	logrus.Infof("reconciliation %s completed: %d of %d pairs matched",
		reconciliation.ReconciliationID, summary.MatchedCount, len(candidates))

	if err := notification.SendWebhook(ctx, notification.NewWebhook{
		Event:   "reconciliation.completed",
		Payload: reconciliation,
	}); err != nil {
		logrus.Error(err)
	}
	return nil
}

func (f *Finlens) failReconciliation(ctx context.Context, reconciliation *model.Reconciliation, cause error) error {
	if err := f.datasource.UpdateReconciliationStatus(ctx, reconciliation.ReconciliationID, StatusFailed); err != nil {
		logrus.Error(err)
	}
	if err := notification.SendWebhook(ctx, notification.NewWebhook{
		Event: "reconciliation.failed",
		Payload: map[string]string{
			"reconciliation_id": reconciliation.ReconciliationID,
			"error":             cause.Error(),
		},
	}); err != nil {
		logrus.Error(err)
	}
	return cause
}

// GetReconciliation retrieves a run with its stored aggregates.
func (f *Finlens) GetReconciliation(ctx context.Context, reconciliationID string) (*model.Reconciliation, error) {
	return f.datasource.GetReconciliation(ctx, reconciliationID)
}

// GetReconciliationsByUploadID lists the runs that used the upload as either
// dataset, newest first.
func (f *Finlens) GetReconciliationsByUploadID(ctx context.Context, uploadID string) ([]*model.Reconciliation, error) {
	if _, err := f.datasource.GetDatasetUpload(ctx, uploadID); err != nil {
		return nil, err
	}
	return f.datasource.GetReconciliationsByUploadID(ctx, uploadID)
}

// GetMatchesByRunID retrieves the scored pairs of a run in scoring order.
func (f *Finlens) GetMatchesByRunID(ctx context.Context, reconciliationID string) ([]model.MatchCandidate, error) {
	if _, err := f.datasource.GetReconciliation(ctx, reconciliationID); err != nil {
		return nil, err
	}
	return f.datasource.GetMatchCandidates(ctx, reconciliationID)
}

// ExportMatchesCSV writes the candidates as a CSV report. Statuses are
// rendered in their display form.
func ExportMatchesCSV(w io.Writer, candidates []model.MatchCandidate) error {
	writer := csv.NewWriter(w)

	header := []string{"Dataset1_Invoice", "Dataset2_Invoice", "Confidence_Score", "Match_Status"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "writing report header")
	}

	for _, candidate := range candidates {
		row := []string{
			candidate.Dataset1Invoice,
			candidate.Dataset2Invoice,
			strconv.Itoa(candidate.ConfidenceScore),
			candidate.Status.Display(),
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "writing report row")
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing report")
}
