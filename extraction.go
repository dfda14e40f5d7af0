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
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/finlens/finlens/config"
	"github.com/finlens/finlens/internal/pdftext"
	"github.com/finlens/finlens/model"
)

// Field probes. Each probe is independent: every one searches the full text
// and the first match wins. Note that the date probe can legitimately hit a
// "Due Date" line, since "Due Date" contains "Date".
var (
	invoiceNumberProbe = regexp.MustCompile(`(?i)Invoice No[.:\s]*(\S+)`)
	dateProbe          = regexp.MustCompile(`(?i)Date[.:\s]*(\d{2}/\d{2}/\d{4})`)
	totalAmountProbe   = regexp.MustCompile(`(?i)Total[\s$]*([\d,]+\.\d{2})`)
	dueDateProbe       = regexp.MustCompile(`(?i)Due Date[.:\s]*(\d{2}/\d{2}/\d{4})`)
	vendorProbe        = regexp.MustCompile(`(?i)From:\s*(.+)\n`)
	clientProbe        = regexp.MustCompile(`(?i)To:\s*(.+)\n`)
)

// probeField runs one probe against the text and wraps the first capture
// group. No match yields the NotFound sentinel, never an error.
func probeField(probe *regexp.Regexp, text string) model.Field {
	match := probe.FindStringSubmatch(text)
	if match == nil {
		return model.NotFound
	}
	return model.FoundField(match[1])
}

// ExtractInvoiceDetails probes the raw text of a financial document for the
// six recognized invoice fields. It is a pure function: no I/O, no error
// path. Empty input yields a record whose fields are all NotFound and whose
// RawText is empty.
//
// Parameters:
// - rawText string: The full document text, pages joined by newlines.
//
// Returns:
// - model.InvoiceRecord: One field per probe plus the verbatim input text.
func ExtractInvoiceDetails(rawText string) model.InvoiceRecord {
	return model.InvoiceRecord{
		InvoiceNumber: probeField(invoiceNumberProbe, rawText),
		Date:          probeField(dateProbe, rawText),
		TotalAmount:   probeField(totalAmountProbe, rawText),
		DueDate:       probeField(dueDateProbe, rawText),
		Vendor:        probeField(vendorProbe, rawText),
		Client:        probeField(clientProbe, rawText),
		RawText:       rawText,
	}
}

// CombineTables concatenates the rows of all tables in order. Columns are
// the union of every table's columns in first-seen order; cells a source
// table never had stay empty.
func CombineTables(tables []model.Table) model.Table {
	var combined model.Table
	seen := make(map[string]bool)

	for _, table := range tables {
		for _, column := range table.Columns {
			if !seen[column] {
				seen[column] = true
				combined.Columns = append(combined.Columns, column)
			}
		}
	}
	for _, table := range tables {
		for _, row := range table.Rows {
			merged := make(model.TabularRow, len(combined.Columns))
			for _, column := range combined.Columns {
				merged[column] = row[column]
			}
			combined.Rows = append(combined.Rows, merged)
		}
	}

	return combined
}

// CollectTables counts the detected tables and combines them into a single
// table. The page count is not the collector's business and is filled in by
// the caller.
func CollectTables(tables []model.Table) model.TableSummary {
	return model.TableSummary{
		TableCount: len(tables),
		Combined:   CombineTables(tables),
	}
}

// analysisCacheTTL bounds how long a cached analysis is served before the
// document is re-analyzed.
const analysisCacheTTL = 24 * time.Hour

// AnalyzeDocument saves the uploaded document to the data directory, extracts
// its text and tables, probes the invoice fields and persists the result.
// Re-analyzing a byte-identical document is served from the cache.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - filename string: The name the document was uploaded under.
// - data []byte: The raw document bytes.
//
// Returns:
// - *model.DocumentAnalysis: The stored analysis.
// - error: An error if saving, extraction or persistence fails.
func (f *Finlens) AnalyzeDocument(ctx context.Context, filename string, data []byte) (*model.DocumentAnalysis, error) {
	ctx, span := otel.Tracer("document.analyze").Start(ctx, "Analyzing document")
	defer span.End()

	contentHash := model.HashText(string(data))

	cached := &model.DocumentAnalysis{}
	if err := f.cache.Get(ctx, analysisCacheKey(contentHash), cached); err != nil {
		logrus.Error(err)
	} else if cached.AnalysisID != "" {
		return cached, nil
	}

	// A cache miss can still be a byte-identical re-upload; check the store
	// before paying for a fresh analysis.
	if existing, err := f.datasource.GetDocumentAnalysisByHash(ctx, contentHash); err == nil {
		if cacheErr := f.cache.Set(ctx, analysisCacheKey(contentHash), existing, analysisCacheTTL); cacheErr != nil {
			logrus.Error(cacheErr)
		}
		return existing, nil
	}

	savedPath, err := f.saveDocument(filename, data)
	if err != nil {
		return nil, err
	}

	pages, err := f.extractPages(savedPath, data)
	if err != nil {
		return nil, err
	}
	fullText := pdftext.JoinPages(pages)

	record := ExtractInvoiceDetails(fullText)
	summary := CollectTables(f.tables.DetectTables(pages))
	summary.PageCount = len(pages)

	analysis := &model.DocumentAnalysis{
		AnalysisID:  model.GenerateUUIDWithSuffix("analysis"),
		Filename:    filepath.Base(filename),
		ContentHash: contentHash,
		Record:      record,
		PageCount:   summary.PageCount,
		TableCount:  summary.TableCount,
		TextLength:  len(fullText),
		Combined:    summary.Combined,
		CreatedAt:   time.Now(),
	}

	if err := f.datasource.RecordDocumentAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, analysisCacheKey(contentHash), analysis, analysisCacheTTL); err != nil {
		logrus.Error(err)
	}

	logrus.WithFields(logrus.Fields{
		"analysis_id": analysis.AnalysisID,
		"filename":    analysis.Filename,
		"pages":       analysis.PageCount,
		"tables":      analysis.TableCount,
	}).Info("document analyzed")

	return analysis, nil
}

// GetDocumentAnalysis retrieves a stored analysis by its ID.
func (f *Finlens) GetDocumentAnalysis(ctx context.Context, analysisID string) (*model.DocumentAnalysis, error) {
	return f.datasource.GetDocumentAnalysis(ctx, analysisID)
}

func analysisCacheKey(contentHash string) string {
	return "analysis:" + contentHash
}

// saveDocument writes the uploaded bytes under the configured data directory.
func (f *Finlens) saveDocument(filename string, data []byte) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}
	savedPath := filepath.Join(conf.Document.DataDir, filepath.Base(filename))
	if err := os.WriteFile(savedPath, data, 0o644); err != nil {
		return "", errors.Wrap(err, "saving uploaded document")
	}
	return savedPath, nil
}

// extractPages returns the page texts of the document. Non-PDF uploads are
// treated as a single page of plain text.
func (f *Finlens) extractPages(savedPath string, data []byte) ([]string, error) {
	if strings.EqualFold(filepath.Ext(savedPath), ".pdf") {
		return pdftext.ExtractPages(savedPath)
	}
	return []string{string(data)}, nil
}
