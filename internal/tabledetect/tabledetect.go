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

// Package tabledetect derives tabular blocks from page text. The line-grid
// detector is the default table-geometry collaborator: it treats runs of
// lines whose cells align on whitespace gutters as one table, with the first
// line as the header row. Callers needing real PDF geometry detection can
// plug in their own detector behind the same method.
package tabledetect

import (
	"regexp"
	"strings"

	"github.com/finlens/finlens/model"
)

// cellSeparator splits a line into cells on tabs or runs of 2+ spaces.
var cellSeparator = regexp.MustCompile(`\t+| {2,}`)

// minTableRows is the smallest run of aligned lines treated as a table
// (header plus at least one data row).
const minTableRows = 2

// LineGrid detects tables from whitespace-aligned text lines.
type LineGrid struct{}

// New returns a line-grid detector.
func New() *LineGrid {
	return &LineGrid{}
}

// DetectTables scans each page for runs of multi-cell lines and returns the
// tables in detection order.
func (d *LineGrid) DetectTables(pages []string) []model.Table {
	var tables []model.Table
	for _, page := range pages {
		tables = append(tables, detectInPage(page)...)
	}
	return tables
}

func detectInPage(page string) []model.Table {
	var tables []model.Table
	var block [][]string

	flush := func() {
		if len(block) >= minTableRows {
			tables = append(tables, buildTable(block))
		}
		block = nil
	}

	for _, line := range strings.Split(page, "\n") {
		cells := splitCells(line)
		if len(cells) >= 2 {
			block = append(block, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

// buildTable uses the block's first line as the header row and maps each
// following line onto it positionally.
func buildTable(block [][]string) model.Table {
	table := model.Table{Columns: block[0]}
	for _, cells := range block[1:] {
		row := make(model.TabularRow, len(table.Columns))
		for i, column := range table.Columns {
			if i < len(cells) {
				row[column] = cells[i]
			} else {
				row[column] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var cells []string
	for _, cell := range cellSeparator.Split(line, -1) {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}
