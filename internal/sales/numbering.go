package sales

import (
	"errors"
	"fmt"
	"strconv"

	"pawnbook-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prefixes of generated numbers
const (
	InvoicePrefix = "INV-"
	ItemPrefix    = "ITEM-"
)

// FormatInvoiceNumber renders sequence n as INV-### (zero padded to 3 digits, wider when needed)
func FormatInvoiceNumber(n int) string {
	return fmt.Sprintf("%s%03d", InvoicePrefix, n)
}

// ParseSequence returns the trailing numeric suffix of a generated number, 0 when there is none
func ParseSequence(number string) int {
	end := len(number)
	start := end
	for start > 0 && number[start-1] >= '0' && number[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.Atoi(number[start:end])
	if err != nil {
		return 0
	}
	return n
}

// NextInvoiceNumber derives the next number from the newest invoice of the book.
// Callers serialize on the book row (see lockBook) so two sales cannot read the same predecessor.
func NextInvoiceNumber(tx *gorm.DB, bookID uint) (string, error) {
	var last model.Invoice
	err := tx.Where("book_id = ?", bookID).
		Order("created_at DESC").
		Order("id DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FormatInvoiceNumber(1), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load latest invoice: %w", err)
	}
	return FormatInvoiceNumber(ParseSequence(last.InvoiceNumber) + 1), nil
}

// FormatItemNumber renders sequence n as ITEM-####
func FormatItemNumber(n int) string {
	return fmt.Sprintf("%s%04d", ItemPrefix, n)
}

// NextItemNumber returns the number after the highest generated item number of the book.
// Hand-entered numbers without the ITEM- prefix do not take part.
func NextItemNumber(tx *gorm.DB, bookID uint) (string, error) {
	var numbers []string
	if err := tx.Model(&model.Item{}).
		Where("book_id = ? AND item_number LIKE ?", bookID, ItemPrefix+"%").
		Pluck("item_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to load item numbers: %w", err)
	}
	highest := 0
	for _, n := range numbers {
		if seq := ParseSequence(n); seq > highest {
			highest = seq
		}
	}
	return FormatItemNumber(highest + 1), nil
}

// lockBook loads the book inside tx, taking a row lock where the dialect supports it
func lockBook(tx *gorm.DB, bookID uint) (*model.Book, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var book model.Book
	if err := query.First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to lock book: %w", err)
	}
	return &book, nil
}
