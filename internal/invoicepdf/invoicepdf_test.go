package invoicepdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawnbook-service/internal/model"
)

func TestRender(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	invoice := &model.Invoice{
		InvoiceNumber: "INV-007",
		InvoiceDate:   date,
		TotalAmount:   decimal.RequireFromString("250"),
		Notes:         "Paid in cash. Señal recibida.",
		Book:          &model.Book{Name: "Joyería"},
		Client:        &model.Person{FirstName: "Ana", LastName: "Pérez", Address: "Main St 1"},
		Sales: []model.Sale{
			{Price: decimal.RequireFromString("100"), Date: date, Item: &model.Item{ItemNumber: "ITEM-0001", Description: "Ring"}},
			{Price: decimal.RequireFromString("150"), Date: date, Item: &model.Item{ItemNumber: "ITEM-0002", Description: strings.Repeat("long ", 30)}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, invoice))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
	assert.Equal(t, "INV-007.pdf", FileName(invoice))
}

func TestRenderWithoutClientOrSales(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &model.Invoice{InvoiceNumber: "INV-001", InvoiceDate: time.Now()}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
