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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("upload")
	assert.True(t, strings.HasPrefix(id, "upload_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("upload"))
}

func TestFieldOrElse(t *testing.T) {
	assert.Equal(t, "INV-001", FoundField("INV-001").OrElse("Not Found"))
	assert.Equal(t, "Not Found", NotFound.OrElse("Not Found"))

	// A found-but-empty value is not the same state as not found.
	assert.Equal(t, "", FoundField("").OrElse("Not Found"))
}

func TestInvoiceRecordFields(t *testing.T) {
	rec := InvoiceRecord{
		InvoiceNumber: FoundField("INV-2024-001"),
		TotalAmount:   FoundField("1,234.56"),
	}

	fields := rec.Fields()
	assert.Len(t, fields, len(FieldNames()))
	for _, name := range FieldNames() {
		_, ok := fields[name]
		assert.True(t, ok, "field %s must always be present", name)
	}
	assert.False(t, fields["due_date"].Found)
}

func TestInvoiceRecordAmountValue(t *testing.T) {
	rec := InvoiceRecord{TotalAmount: FoundField("1,234.56")}
	amount, ok := rec.AmountValue()
	assert.True(t, ok)
	assert.Equal(t, "1234.56", amount.String())

	_, ok = InvoiceRecord{TotalAmount: NotFound}.AmountValue()
	assert.False(t, ok)

	_, ok = InvoiceRecord{TotalAmount: FoundField("n/a")}.AmountValue()
	assert.False(t, ok)
}

func TestMatchStatusDisplay(t *testing.T) {
	assert.Equal(t, "Potential Match", MatchStatusPotential.Display())
	assert.Equal(t, "No Match", MatchStatusNone.Display())
}
