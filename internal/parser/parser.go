package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/threadscan/threadscan/internal/models"
)

var (
	sizeWordPattern = regexp.MustCompile(
		`(?i)\b(?:XXXS|XXS|XS|S|M|L|XL|XXL|XXXL|ONE SIZE|OS|OSFA|PETITE|REGULAR|TALL)\b`)
	sizeNumberPattern = regexp.MustCompile(
		`(?i)\b(?:UK|US|EU)?\s?\d{1,2}(?:\.\d)?(?:-\d{1,2}(?:\.\d)?)?\b`)
	reviewCountPattern = regexp.MustCompile(`(?i)\b\d+\s*reviews?\b`)
	sizeNoisePattern   = regexp.MustCompile(
		`(?i)\b(sort by|prev|next|choose size|find my size|join the waitlist|low stock)\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonNumericPattern = regexp.MustCompile(`[^0-9.]`)
)

// Numeric size tokens above this value are assumed to be something else
// entirely (a percentage, a year, a review count that slipped through).
const maxSizeNumber = 30

var descriptionBlacklist = []string{
	"strictly necessary cookies",
	"delivery time",
	"shipping method",
	"free above",
	"cookie",
	"cookies",
	"sort by",
	"prev",
	"next",
	"wishlist",
	"shipping",
}

// CleanText collapses runs of whitespace into single spaces and trims the
// result. Returns "" when nothing remains.
func CleanText(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// SizeTokens extracts size tokens from a block of raw widget text. Known
// noise phrases are stripped first, then alphabetic vocabulary matches are
// emitted uppercase, followed by numeric tokens (optionally region-prefixed)
// whose value passes the plausibility bound. Order of first appearance is
// preserved; the caller is responsible for cross-block dedup.
func SizeTokens(text string) []string {
	cleaned := reviewCountPattern.ReplaceAllString(text, " ")
	cleaned = sizeNoisePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, "/", " ")

	var tokens []string
	for _, match := range sizeWordPattern.FindAllString(cleaned, -1) {
		tokens = append(tokens, strings.ToUpper(match))
	}
	for _, match := range sizeNumberPattern.FindAllString(cleaned, -1) {
		normalized := strings.ReplaceAll(strings.ToUpper(match), " ", "")
		if isReasonableSizeNumber(normalized) {
			tokens = append(tokens, normalized)
		}
	}
	return tokens
}

// FilterSizes runs SizeTokens over every text block and deduplicates the
// combined result while keeping first-seen order.
func FilterSizes(blocks []string) []string {
	seen := make(map[string]struct{})
	var sizes []string
	for _, block := range blocks {
		for _, token := range SizeTokens(block) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			sizes = append(sizes, token)
		}
	}
	return sizes
}

func isReasonableSizeNumber(token string) bool {
	numeric := nonNumericPattern.ReplaceAllString(token, "")
	if numeric == "" {
		return false
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return false
	}
	return value <= maxSizeNumber
}

// CleanDescription splits a description into sentences and drops every
// sentence containing boilerplate (cookie banners, shipping terms,
// navigation labels). Returns "" when nothing survives.
func CleanDescription(text string) string {
	cleaned := CleanText(text)
	if cleaned == "" {
		return ""
	}
	var kept []string
	for _, sentence := range splitSentences(cleaned) {
		lowered := strings.ToLower(sentence)
		blocked := false
		for _, phrase := range descriptionBlacklist {
			if strings.Contains(lowered, phrase) {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, sentence)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace. The punctuation stays attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && runes[i+1] == ' ' {
				sentences = append(sentences, string(runes[start:i+1]))
				start = i + 2
				i++
			}
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// NormalizeAvailability maps free-form availability text (visible DOM text or
// a schema.org availability URL) onto the engine's vocabulary. Returns ""
// when the text matches nothing.
func NormalizeAvailability(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "outofstock"),
		strings.Contains(lowered, "out of stock"),
		strings.Contains(lowered, "sold out"):
		return models.AvailabilityOutOfStock
	case strings.Contains(lowered, "instock"),
		strings.Contains(lowered, "in stock"),
		strings.Contains(lowered, "available"):
		return models.AvailabilityInStock
	case strings.Contains(lowered, "waitlist"):
		return models.AvailabilityOutOfStock
	}
	return ""
}
