package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawnbook-service/internal/model"
)

func TestWriteItems(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []model.Item{
		{
			ID:          1,
			ItemNumber:  "ITEM-0001",
			Description: `Gold ring, 18k "vintage"`,
			Category:    &model.Category{Name: "Jewelry"},
			Color:       "gold",
			Grade:       "A",
			Status:      model.ItemStatusSold,
			CreatedAt:   created,
			Purchase: &model.Purchase{
				Price:  decimal.RequireFromString("100"),
				Date:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				Seller: &model.Person{FirstName: "Sam", LastName: "Seller"},
			},
			Sale: &model.Sale{
				Price:  decimal.RequireFromString("180.5"),
				Date:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
				Client: &model.Person{FirstName: "Ana"},
			},
			Incidents: []model.Incident{
				{ID: 1, Title: "Polish", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
				{ID: 2, Title: "Resize", Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
				{ID: 3, Title: "Appraisal", Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			ID:         2,
			ItemNumber: "ITEM-0002",
			Status:     model.ItemStatusAvailable,
			CreatedAt:  created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, items))
	assert.Contains(t, buf.String(), `"Gold ring, 18k ""vintage"""`)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ItemColumns, rows[0])
	assert.Equal(t, []string{
		"ITEM-0001", `Gold ring, 18k "vintage"`, "Jewelry", "gold", "A",
		"100.00", "2024-03-02", "Sam Seller",
		"180.50", "2024-04-02", "Ana",
		"sold", "Resize", "2024-03-01T10:00:00Z",
	}, rows[1])
	assert.Equal(t, []string{
		"ITEM-0002", "", "", "", "",
		"", "", "",
		"", "", "",
		"available", "", "2024-03-01T10:00:00Z",
	}, rows[2])
}

func TestWriteItemsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
