package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumericRe   = regexp.MustCompile(`[^0-9.,]`)
	currencyCodeRe = regexp.MustCompile(`(?i)\b(?:USD|EUR|GBP|JPY|AUD|CAD|CHF|CNY|RUB|KRW|INR|UAH|PLN|NZD)\b`)
)

const currencySymbols = "$€£¥₹₽₩₪฿₫₦₴"

// NormalizePrice turns raw extracted price text into a number. Locale
// ambiguity between thousands and decimal separators is resolved as follows:
// more than one comma means commas are thousands separators; a single comma
// with no period is a decimal point; otherwise a comma between a digit and a
// terminal 3-digit group is a thousands separator. Returns nil when the
// cleaned text is not numeric; normalization failure is never an error.
func NormalizePrice(text string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", ""))
	num := nonNumericRe.ReplaceAllString(s, "")

	switch {
	case strings.Count(num, ",") > 1:
		num = strings.ReplaceAll(num, ",", "")
	case strings.Count(num, ",") == 1 && strings.Count(num, ".") == 0:
		num = strings.Replace(num, ",", ".", 1)
	default:
		num = stripGroupingSeparators(num)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &value
}

// stripGroupingSeparators removes a comma or space that sits between a digit
// and a following complete 3-digit group.
func stripGroupingSeparators(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if (r == ',' || r == ' ') && i > 0 && isDigit(runes[i-1]) && followedByGroup(runes, i+1) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// followedByGroup reports whether exactly three digits start at position i,
// terminated by a non-digit or the end of the string.
func followedByGroup(runes []rune, i int) bool {
	if i+3 > len(runes) {
		return false
	}
	for j := i; j < i+3; j++ {
		if !isDigit(runes[j]) {
			return false
		}
	}
	return i+3 == len(runes) || !isDigit(runes[i+3])
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// NormalizeCurrency extracts a currency from raw price text. A known currency
// symbol anywhere in the text wins; otherwise a case-insensitive whole-word
// ISO-style code is returned upper-cased. Returns nil when neither is found.
func NormalizeCurrency(text string) *string {
	for _, r := range text {
		if strings.ContainsRune(currencySymbols, r) {
			symbol := string(r)
			return &symbol
		}
	}
	if match := currencyCodeRe.FindString(text); match != "" {
		code := strings.ToUpper(match)
		return &code
	}
	return nil
}
