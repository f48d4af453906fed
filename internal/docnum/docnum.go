// Package docnum issues sequential document numbers for workflow documents.
// Numbers follow the company scheme NNNN/RGI/<doc>/<roman-month>/<year>,
// restarting at 0001 each calendar year per document type.
package docnum

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DocType distinguishes the independent number sequences.
type DocType string

const (
	// DocTypeInvoice numbers invoices (NNNN/RGI/INV/...).
	DocTypeInvoice DocType = "INV"
	// DocTypeDelivery numbers delivery orders (NNNN/RGI/DO/...).
	DocTypeDelivery DocType = "DO"
)

const companyToken = "RGI"

var romanMonths = [12]string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

// RomanMonth returns the roman numeral for the month of t.
func RomanMonth(t time.Time) string {
	return romanMonths[int(t.Month())-1]
}

// Format renders a document number for the given sequence and date.
func Format(doc DocType, seq int, at time.Time) string {
	return fmt.Sprintf("%04d/%s/%s/%s/%d", seq, companyToken, doc, RomanMonth(at), at.Year())
}

var numberPattern = regexp.MustCompile(`^(\d{4})/` + companyToken + `/([A-Z]+)/([IVX]+)/(\d{4})$`)

// Parse extracts the sequence, type, and year from a document number.
// ok is false for numbers that do not match the scheme; callers treat those
// as legacy noise, not errors.
func Parse(number string) (seq int, doc DocType, year int, ok bool) {
	m := numberPattern.FindStringSubmatch(strings.TrimSpace(number))
	if m == nil {
		return 0, "", 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", 0, false
	}
	year, err = strconv.Atoi(m[4])
	if err != nil {
		return 0, "", 0, false
	}
	return seq, DocType(m[2]), year, true
}

// MaxSequence returns the highest sequence among numbers of the given type
// and year. Malformed or foreign numbers are skipped. Used to seed counters
// from pre-existing records during migration.
func MaxSequence(numbers []string, doc DocType, year int) int {
	max := 0
	for _, n := range numbers {
		seq, d, y, ok := Parse(n)
		if !ok || d != doc || y != year {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max
}
