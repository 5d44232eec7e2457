// Package translate turns merged paragraphs into Korean translation units.
// Batches are sent to an OpenAI compatible chat model through a separator
// protocol; formula paragraphs bypass translation entirely.
package translate

import (
	"context"
	"strings"
)

// BatchSeparator delimits paragraphs inside one model request so a whole
// batch costs a single round trip.
const BatchSeparator = "\n---BLOCK_SEPARATOR---\n"

// Item is one paragraph to translate, keyed by its paragraph ID.
type Item struct {
	ID   string
	Text string
}

// Service translates one batch of items. The returned map is keyed by item
// ID; callers must not rely on any ordering.
type Service interface {
	TranslateBatch(ctx context.Context, items []Item, tone string) (map[string]string, error)
}

// mathSymbols are characters that essentially only occur in formulas.
const mathSymbols = "∫∑∏√∂∇±×÷≤≥≠≈∞∈∉⊂⊃∪∩∧∨¬∀∃αβγδεζηθικλμνξοπρστυφχψω"

// IsFormula reports whether text is a mathematical formula that must be kept
// verbatim rather than translated.
func IsFormula(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	// LaTeX style inline or display math.
	if len(text) > 2 && strings.HasPrefix(text, "$") && strings.HasSuffix(text, "$") {
		return true
	}

	if strings.ContainsAny(text, "∫∑∏√∂∇") {
		return true
	}

	symbolCount := 0
	totalChars := 0
	for _, r := range text {
		totalChars++
		switch r {
		case '+', '-', '*', '/', '=', '<', '>', '^', '_', '~',
			'(', ')', '[', ']', '{', '}':
			symbolCount++
		default:
			if strings.ContainsRune(mathSymbols, r) {
				symbolCount++
			}
		}
	}
	if totalChars > 0 && float64(symbolCount)/float64(totalChars) > 0.3 {
		return true
	}

	// Short equations like "f(x) = ax + b".
	if strings.Contains(text, "=") &&
		(strings.Contains(text, "(") || strings.Contains(text, "+") || strings.Contains(text, "-")) {
		if len(strings.Fields(text)) <= 5 && len(text) < 100 {
			return true
		}
	}

	// Dense subscript and superscript markers.
	if strings.Count(text, "_")+strings.Count(text, "^") > 2 && len(text) < 100 {
		return true
	}

	return false
}
