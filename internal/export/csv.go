// Package export renders book data as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"pawnbook-service/internal/model"
)

// ItemColumns is the header row of the item export
var ItemColumns = []string{
	"Item Number", "Description", "Category", "Color", "Grade",
	"Purchase Price", "Purchase Date", "Seller",
	"Sale Price", "Sale Date", "Client",
	"Status", "Last Incident", "Created At",
}

const dateLayout = "2006-01-02"

// WriteItems writes one row per item. Items are expected to carry Category,
// Purchase.Seller, Sale.Client and Incidents.
func WriteItems(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ItemColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range items {
		if err := cw.Write(itemRow(&items[i])); err != nil {
			return fmt.Errorf("failed to write item %s: %w", items[i].ItemNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func itemRow(item *model.Item) []string {
	row := make([]string, len(ItemColumns))
	row[0] = item.ItemNumber
	row[1] = item.Description
	if item.Category != nil {
		row[2] = item.Category.Name
	}
	row[3] = item.Color
	row[4] = item.Grade

	if p := item.Purchase; p != nil {
		row[5] = p.Price.StringFixed(2)
		row[6] = formatDate(p.Date)
		if p.Seller != nil {
			row[7] = p.Seller.FullName()
		}
	}
	if s := item.Sale; s != nil {
		row[8] = s.Price.StringFixed(2)
		row[9] = formatDate(s.Date)
		if s.Client != nil {
			row[10] = s.Client.FullName()
		}
	}

	row[11] = item.Status
	if last := lastIncident(item.Incidents); last != nil {
		row[12] = last.Title
	}
	row[13] = item.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

func lastIncident(incidents []model.Incident) *model.Incident {
	var last *model.Incident
	for i := range incidents {
		inc := &incidents[i]
		if last == nil || inc.Date.After(last.Date) || (inc.Date.Equal(last.Date) && inc.ID > last.ID) {
			last = inc
		}
	}
	return last
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
