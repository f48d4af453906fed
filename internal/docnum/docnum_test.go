package docnum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  DocType
		seq  int
		at   time.Time
		want string
	}{
		{"first invoice of year", DocTypeInvoice, 1, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "0001/RGI/INV/I/2026"},
		{"delivery in august", DocTypeDelivery, 42, time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC), "0042/RGI/DO/VIII/2026"},
		{"december", DocTypeInvoice, 1204, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), "1204/RGI/INV/XII/2025"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.doc, tc.seq, tc.at))
		})
	}
}

func TestRomanMonth(t *testing.T) {
	assert.Equal(t, "I", RomanMonth(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "IX", RomanMonth(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "XII", RomanMonth(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParse(t *testing.T) {
	seq, doc, year, ok := Parse("0317/RGI/INV/VIII/2026")
	assert.True(t, ok)
	assert.Equal(t, 317, seq)
	assert.Equal(t, DocTypeInvoice, doc)
	assert.Equal(t, 2026, year)

	for _, malformed := range []string{
		"",
		"INV-2026-001",
		"317/RGI/INV/VIII/2026",   // sequence not zero padded to 4
		"0317/ACME/INV/VIII/2026", // wrong company token
		"0317/RGI/INV/13/2026",    // non-roman month
		"garbage",
	} {
		_, _, _, ok := Parse(malformed)
		assert.False(t, ok, "expected %q to be rejected", malformed)
	}
}

func TestMaxSequenceIgnoresMalformedAndForeign(t *testing.T) {
	numbers := []string{
		"0001/RGI/INV/I/2026",
		"0007/RGI/INV/III/2026",
		"not-a-number",
		"0099/RGI/DO/III/2026",   // other doc type
		"0500/RGI/INV/XII/2025",  // other year
		"0003/RGI/INV/II/2026",
	}
	assert.Equal(t, 7, MaxSequence(numbers, DocTypeInvoice, 2026))
	assert.Equal(t, 99, MaxSequence(numbers, DocTypeDelivery, 2026))
	assert.Equal(t, 0, MaxSequence(nil, DocTypeInvoice, 2026))
}
