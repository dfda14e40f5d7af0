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

// Package tabular parses external CSV, XLSX and JSON datasets into tables.
// It is the tabular-parsing collaborator of the match engine: every parsed
// row is a plain column-name to string-value mapping, and a missing or oddly
// typed invoice column is coerced, never rejected.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/finlens/finlens/model"
)

// InvoiceColumn is the column the match engine keys on.
const InvoiceColumn = "invoice"

// ParseCSV reads a comma-separated dataset with a header row.
func ParseCSV(r io.Reader) (model.Table, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	csvReader.FieldsPerRecord = -1 // ragged rows are padded, not rejected

	headers, err := csvReader.Read()
	if err != nil {
		return model.Table{}, errors.Wrap(err, "reading CSV headers")
	}
	for i, header := range headers {
		headers[i] = strings.TrimSpace(header)
	}

	table := model.Table{Columns: headers}
	rowNum := 1 // header row
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Table{}, errors.Wrapf(err, "reading CSV row %d", rowNum+1)
		}
		rowNum++

		row := make(model.TabularRow, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ParseXLSX reads the first sheet of a spreadsheet, treating the first row
// as headers.
func ParseXLSX(data []byte) (model.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return model.Table{}, errors.Wrap(err, "opening spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return model.Table{}, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(rows) == 0 {
		return model.Table{}, errors.New("spreadsheet has no header row")
	}

	headers := rows[0]
	for i, header := range headers {
		headers[i] = strings.TrimSpace(header)
	}

	table := model.Table{Columns: headers}
	for _, record := range rows[1:] {
		row := make(model.TabularRow, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ParseJSON reads an array of flat objects. Values are coerced to strings,
// keeping numeric literals verbatim. Column order follows the sorted keys of
// the first object, since JSON objects carry no order of their own.
func ParseJSON(data []byte) (model.Table, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var objects []map[string]interface{}
	if err := decoder.Decode(&objects); err != nil {
		return model.Table{}, errors.Wrap(err, "decoding JSON dataset")
	}

	var table model.Table
	for _, obj := range objects {
		row := make(model.TabularRow, len(obj))
		for key, value := range obj {
			row[key] = coerceString(value)
		}
		table.Rows = append(table.Rows, row)
	}
	if len(objects) > 0 {
		for key := range objects[0] {
			table.Columns = append(table.Columns, key)
		}
		sort.Strings(table.Columns)
	}

	return table, nil
}

// InvoiceValue returns the row's invoice identifier, matching the column
// case-insensitively. A row without one yields the empty string; the match
// engine still pairs it with every other row.
func InvoiceValue(row model.TabularRow) string {
	if v, ok := row[InvoiceColumn]; ok {
		return v
	}
	for key, value := range row {
		if strings.EqualFold(strings.TrimSpace(key), InvoiceColumn) {
			return value
		}
	}
	return ""
}

func coerceString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
