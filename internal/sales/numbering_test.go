package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-001", FormatInvoiceNumber(1))
	assert.Equal(t, "INV-042", FormatInvoiceNumber(42))
	assert.Equal(t, "INV-1000", FormatInvoiceNumber(1000))
}

func TestFormatItemNumber(t *testing.T) {
	assert.Equal(t, "ITEM-0001", FormatItemNumber(1))
	assert.Equal(t, "ITEM-12345", FormatItemNumber(12345))
}

func TestParseSequence(t *testing.T) {
	cases := map[string]int{
		"INV-001":  1,
		"INV-099":  99,
		"INV-1234": 1234,
		"legacy-7": 7,
		"INV-":     0,
		"":         0,
		"draft":    0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseSequence(in), in)
	}
}
