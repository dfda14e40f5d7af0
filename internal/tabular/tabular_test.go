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

package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/finlens/finlens/model"
)

func TestParseCSV(t *testing.T) {
	input := "invoice,amount\nINV-001, 150.00\nINV-002,220.10\n"

	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice", "amount"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "INV-001", table.Rows[0]["invoice"])
	assert.Equal(t, "150.00", table.Rows[0]["amount"])
	assert.Equal(t, "INV-002", table.Rows[1]["invoice"])
}

func TestParseCSVShortRecord(t *testing.T) {
	// Ragged rows are padded, not rejected.
	input := "invoice,amount\nINV-001\n"
	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "INV-001", table.Rows[0]["invoice"])
	assert.Equal(t, "", table.Rows[0]["amount"])
}

func TestParseCSVNoHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"invoice", "amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"INV-001", "150.00"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"INV-002", "220.10"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ParseXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice", "amount"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "INV-002", table.Rows[1]["invoice"])
}

func TestParseJSON(t *testing.T) {
	data := []byte(`[{"invoice":"INV-001","amount":150.10},{"invoice":1002}]`)

	table, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "invoice"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "INV-001", table.Rows[0]["invoice"])
	assert.Equal(t, "150.10", table.Rows[0]["amount"])

	// Numeric invoice identifiers coerce to their literal form.
	assert.Equal(t, "1002", table.Rows[1]["invoice"])
}

func TestInvoiceValue(t *testing.T) {
	assert.Equal(t, "INV-1", InvoiceValue(model.TabularRow{"invoice": "INV-1"}))
	assert.Equal(t, "INV-2", InvoiceValue(model.TabularRow{"Invoice": "INV-2"}))
	assert.Equal(t, "INV-3", InvoiceValue(model.TabularRow{" INVOICE ": "INV-3"}))

	// Rows without an invoice column coerce to empty, never error.
	assert.Equal(t, "", InvoiceValue(model.TabularRow{"reference": "x"}))
	assert.Equal(t, "", InvoiceValue(nil))
}
