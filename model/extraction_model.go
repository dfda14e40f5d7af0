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
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field is a tagged optional for one extracted invoice field. A field that was
// probed but never matched carries Found=false; that state is distinct from a
// field whose matched value happens to be empty. Display strings such as
// "Not Found" belong to the presentation layer, never to this type.
type Field struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// NotFound is the sentinel for "searched, no match".
var NotFound = Field{}

// FoundField wraps a matched value in a Field.
func FoundField(value string) Field {
	return Field{Value: value, Found: true}
}

// OrElse returns the field value, or the given fallback when the field was
// not found. This is the single conversion point between the sentinel and a
// display string.
func (f Field) OrElse(fallback string) string {
	if !f.Found {
		return fallback
	}
	return f.Value
}

// InvoiceRecord is the output of the field extractor. Every recognized field
// is always present, matched or not; RawText always carries the full source
// text verbatim.
type InvoiceRecord struct {
	InvoiceNumber Field  `json:"invoice_number"`
	Date          Field  `json:"date"`
	TotalAmount   Field  `json:"total_amount"`
	DueDate       Field  `json:"due_date"`
	Vendor        Field  `json:"vendor"`
	Client        Field  `json:"client"`
	RawText       string `json:"raw_text"`
}

// FieldNames lists the recognized field names in their canonical order.
func FieldNames() []string {
	return []string{"invoice_number", "date", "total_amount", "due_date", "vendor", "client"}
}

// Fields returns the named fields of the record, keyed by canonical name.
// RawText is not a probe result and is excluded.
func (r InvoiceRecord) Fields() map[string]Field {
	return map[string]Field{
		"invoice_number": r.InvoiceNumber,
		"date":           r.Date,
		"total_amount":   r.TotalAmount,
		"due_date":       r.DueDate,
		"vendor":         r.Vendor,
		"client":         r.Client,
	}
}

// AmountValue parses the extracted total_amount into a decimal, stripping
// thousands separators. The second return is false when the field was not
// found or does not parse.
func (r InvoiceRecord) AmountValue() (decimal.Decimal, bool) {
	if !r.TotalAmount.Found {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(r.TotalAmount.Value, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

// TabularRow maps column names to cell values.
type TabularRow map[string]string

// Table is an ordered sequence of rows with an ordered column list.
type Table struct {
	Columns []string     `json:"columns"`
	Rows    []TabularRow `json:"rows"`
}

// IsEmpty reports whether the table has neither columns nor rows.
func (t Table) IsEmpty() bool {
	return len(t.Columns) == 0 && len(t.Rows) == 0
}

// TableSummary is the table collector's output. PageCount and TableCount are
// independent figures and may differ.
type TableSummary struct {
	PageCount  int   `json:"page_count"`
	TableCount int   `json:"table_count"`
	Combined   Table `json:"combined"`
}

// DocumentAnalysis is one persisted document-analysis result.
type DocumentAnalysis struct {
	ID          int64         `json:"-"`
	AnalysisID  string        `json:"analysis_id"`
	Filename    string        `json:"filename"`
	ContentHash string        `json:"content_hash"`
	Record      InvoiceRecord `json:"record"`
	PageCount   int           `json:"page_count"`
	TableCount  int           `json:"table_count"`
	TextLength  int           `json:"text_length"`
	Combined    Table         `json:"combined"`
	CreatedAt   time.Time     `json:"created_at"`
}
