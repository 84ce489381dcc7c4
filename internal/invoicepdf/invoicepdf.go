// Package invoicepdf renders an invoice as a single PDF document.
package invoicepdf

import (
	"fmt"
	"io"

	"pawnbook-service/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	lineHeight = 7.0
)

// column widths of the line table, in mm
var columns = []struct {
	title string
	width float64
	align string
}{
	{"Item", 35, "L"},
	{"Description", 95, "L"},
	{"Sale date", 25, "C"},
	{"Price", 25, "R"},
}

// FileName is the attachment name used for an invoice download
func FileName(invoice *model.Invoice) string {
	return invoice.InvoiceNumber + ".pdf"
}

// Render writes the invoice to w. The invoice should carry Book, Client and Sales with their Item.
func Render(w io.Writer, invoice *model.Invoice) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Invoice "+invoice.InvoiceNumber, true)
	pdf.SetCreator("pawnbook", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Invoice "+invoice.InvoiceNumber), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	if invoice.Book != nil {
		pdf.CellFormat(0, lineHeight, tr("Book: "+invoice.Book.Name), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, lineHeight, "Date: "+invoice.InvoiceDate.Format("2006-01-02"), "", 1, "L", false, 0, "")
	if invoice.Client != nil {
		pdf.CellFormat(0, lineHeight, tr("Client: "+invoice.Client.FullName()), "", 1, "L", false, 0, "")
		if invoice.Client.Address != "" {
			pdf.CellFormat(0, lineHeight, tr(invoice.Client.Address), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, lineHeight, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, sale := range invoice.Sales {
		number, description := "", ""
		if sale.Item != nil {
			number = sale.Item.ItemNumber
			description = sale.Item.Description
		}
		values := []string{number, truncate(description, 60), sale.Date.Format("2006-01-02"), sale.Price.StringFixed(2)}
		for i, col := range columns {
			pdf.CellFormat(col.width, lineHeight, tr(values[i]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	labelWidth := 0.0
	for _, col := range columns[:len(columns)-1] {
		labelWidth += col.width
	}
	pdf.CellFormat(labelWidth, lineHeight, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[len(columns)-1].width, lineHeight, invoice.TotalAmount.StringFixed(2), "1", 1, "R", false, 0, "")

	if invoice.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(invoice.Notes), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice %s: %w", invoice.InvoiceNumber, err)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
