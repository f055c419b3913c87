package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	priceTokenRegex = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
)

// currencyMarkers are stripped from price text before numeric parsing.
// Order matters: "Rs." must go before "Rs".
var currencyMarkers = []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£"}

// NormalizeText cleans a raw extracted text value: NFKC-normalizes it,
// collapses embedded newlines and runs of whitespace to single spaces, and
// trims the result.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParsePriceText parses a labeled price value such as "₹ 1,234.50 per share"
// into a decimal amount. Currency markers are stripped, then the first
// numeric token is taken so trailing unit text never poisons the parse.
func ParsePriceText(text string) (float64, error) {
	cleaned := NormalizeText(text)
	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}

	token := priceTokenRegex.FindString(cleaned)
	if token == "" {
		return 0, fmt.Errorf("no numeric content in price text %q", text)
	}
	token = strings.ReplaceAll(token, ",", "")

	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return amount, nil
}
