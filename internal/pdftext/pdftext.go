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

// Package pdftext extracts page-ordered plain text from PDF documents. It is
// the document-text collaborator for the field extractor: pages come back in
// original order and are joined with a single newline before extraction.
package pdftext

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

// ExtractPages reads a PDF file and returns the text of each page in order.
// Row-based extraction is tried first for layout preservation, falling back
// to the page's plain-text stream when rows are unavailable.
func ExtractPages(filePath string) (pages []string, err error) {
	defer func() {
		// The pdf library panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			err = errors.Errorf("pdf parsing failed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, errors.Wrap(openErr, "opening pdf")
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, errors.New("pdf has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, extractPageText(page))
	}

	return pages, nil
}

// JoinPages assembles page texts into the single document string the field
// extractor consumes, preserving page order.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

func extractPageText(page pdf.Page) string {
	if text := extractByRow(page); text != "" {
		return text
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// extractByRow reconstructs page text line by line from positioned words.
func extractByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
