// Package parser turns raw OCR text into structured receipt data using
// pattern heuristics. Parsing never fails: a field that cannot be read is
// absent, not an error.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LineItem is one purchased item read off the receipt body.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ParsedReceiptData is the ephemeral result of one Parse call. Merchant and
// Total are nil when not found; Date always carries a value (today when no
// pattern matched).
type ParsedReceiptData struct {
	Merchant *string    `json:"merchant_name,omitempty"`
	Total    *float64   `json:"total_amount,omitempty"`
	Date     string     `json:"date"`
	Items    []LineItem `json:"items"`
}

// Parse extracts merchant, total, date and line items from raw OCR text.
// Deterministic for a given text and day; no hidden state.
func Parse(text string) ParsedReceiptData {
	return parseAt(text, time.Now())
}

func parseAt(text string, now time.Time) ParsedReceiptData {
	lines := nonEmptyLines(text)
	return ParsedReceiptData{
		Merchant: extractMerchant(lines),
		Total:    extractTotal(text),
		Date:     extractDate(text, now),
		Items:    extractLineItems(lines),
	}
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

var (
	reAlphaRun     = regexp.MustCompile(`[a-zA-Z]{3,}`)
	reMerchantJunk = regexp.MustCompile(`[^a-zA-Z0-9\s&'-]`)
)

// extractMerchant scans the first 3 lines for something name-like: longer
// than 3 characters with a run of at least 3 letters. Punctuation other than
// &, ' and - is stripped from the winner.
func extractMerchant(lines []string) *string {
	for i := 0; i < len(lines) && i < 3; i++ {
		line := strings.TrimSpace(lines[i])
		if len(line) > 3 && reAlphaRun.MatchString(line) {
			name := strings.TrimSpace(reMerchantJunk.ReplaceAllString(line, ""))
			return &name
		}
	}
	return nil
}

// Label patterns tried in priority order; all demand exactly two decimals.
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total[:\s]*\$?\s*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)amount[:\s]*\$?\s*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)balance[:\s]*\$?\s*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)grand\s*total[:\s]*\$?\s*(\d+[.,]\d{2})`),
	regexp.MustCompile(`(?i)\$\s*(\d+[.,]\d{2})\s*total`),
}

var reBareAmount = regexp.MustCompile(`\$?\s*(\d+[.,]\d{2})`)

// extractTotal finds the labeled total, or falls back to the largest bare
// two-decimal amount anywhere in the text. Non-positive values are rejected.
func extractTotal(text string) *float64 {
	for _, pat := range totalPatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if v, ok := parseAmount(m[1]); ok {
				return &v
			}
		}
	}

	// Fallback: maximum of every bare amount in the text.
	var best float64
	var found bool
	for _, m := range reBareAmount.FindAllStringSubmatch(text, -1) {
		if v, ok := parseAmount(m[1]); ok && (!found || v > best) {
			best = v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &best
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

var (
	reDateNumeric4   = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	reDateNumeric24  = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})`)
	reDateISO        = regexp.MustCompile(`(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})`)
	reDateMonthName  = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2}),?\s+(\d{4})`)
	datePatternOrder = []*regexp.Regexp{reDateNumeric4, reDateNumeric24, reDateISO, reDateMonthName}
)

var monthAbbrevs = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// extractDate tries numeric M/D/Y, ISO Y-M-D, then English month names, in
// that order. The first structurally valid candidate wins; when nothing
// matches, today is returned (deliberate fallback, not an error).
func extractDate(text string, now time.Time) string {
	for _, pat := range datePatternOrder {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var year, month, day int
		if pat == reDateMonthName {
			month = monthAbbrevs[strings.ToLower(m[1])]
			day = atoi(m[2])
			year = atoi(m[3])
		} else if len(m[1]) == 4 {
			year = atoi(m[1])
			month = atoi(m[2])
			day = atoi(m[3])
		} else {
			// US convention: month/day/year
			month = atoi(m[1])
			day = atoi(m[2])
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}

		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}
	return now.Format("2006-01-02")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var reLineItem = regexp.MustCompile(`^(.+?)\s+\$?\s*(\d+[.,]\d{2})$`)

// extractLineItems keeps every "<description> <price>" line whose
// description is longer than 2 characters and is not a totals line.
// Order is preserved; duplicates are kept.
func extractLineItems(lines []string) []LineItem {
	var items []LineItem
	for _, line := range lines {
		m := reLineItem.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		lower := strings.ToLower(name)
		if len(name) <= 2 ||
			strings.Contains(lower, "total") ||
			strings.Contains(lower, "subtotal") ||
			strings.Contains(lower, "tax") {
			continue
		}
		price, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		items = append(items, LineItem{Name: name, Price: price})
	}
	return items
}
