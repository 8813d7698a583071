// Package utils provides utility functions for the vmlens project.
package utils

import (
	"regexp"

	"github.com/fatih/color"
)

// Plain document highlighting colors
var (
	// Cross references following a link label
	docLinkColor = color.New(color.FgCyan)
	// Addresses
	docAddressColor = color.New(color.FgYellow)
	// Inline error markers
	docErrorColor = color.New(color.FgRed, color.Bold)
	// Code markers like [Entry Point]
	docMarkerColor = color.New(color.FgMagenta, color.Bold)
	// String literals
	docStringColor = color.New(color.FgGreen)
	// Bytecode comments
	docCommentColor = color.New(color.FgHiBlack)
)

// Patterns for document elements
var (
	// Matches a cross reference in plain style: [kind] or [kind=payload]
	docLinkPattern = regexp.MustCompile(`\[[a-z_]+(?:=[0-9a-fA-Fx,]+)?\]`)
	// Matches code markers
	docMarkerPattern = regexp.MustCompile(`\[(?:[A-Z][A-Za-z]*)(?: [A-Za-z]+)*\]`)
	// Matches inline error markers
	docErrorPattern = regexp.MustCompile(`<(?:error|disassembly stopped|debug information)[^>]*>`)
	// Matches string literals
	docStringPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	// Matches hexadecimal addresses
	docAddressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)
	// Matches the symbolic operand comments of bytecode rows
	docCommentPattern = regexp.MustCompile(`//[^\n\[]*`)
)

// token represents a syntax-highlighted token
type token struct {
	text  string
	color *color.Color
	start int
	end   int
}

// HighlightDocument applies terminal colors to a plain style document and
// returns the colored string
func HighlightDocument(text string) string {
	if text == "" {
		return ""
	}

	var tokens []token

	// Patterns are applied in priority order; earlier matches win overlaps
	for _, rule := range []struct {
		pattern *regexp.Regexp
		color   *color.Color
	}{
		{docErrorPattern, docErrorColor},
		{docStringPattern, docStringColor},
		{docLinkPattern, docLinkColor},
		{docMarkerPattern, docMarkerColor},
		{docCommentPattern, docCommentColor},
		{docAddressPattern, docAddressColor},
	} {
		for _, match := range rule.pattern.FindAllStringIndex(text, -1) {
			if !overlapsAny(match[0], match[1], tokens) {
				tokens = append(tokens, token{
					text:  text[match[0]:match[1]],
					color: rule.color,
					start: match[0],
					end:   match[1],
				})
			}
		}
	}

	return buildHighlightedString(text, tokens)
}

// overlapsAny checks if a range overlaps with any existing token
func overlapsAny(start, end int, tokens []token) bool {
	for _, t := range tokens {
		if start < t.end && end > t.start {
			return true
		}
	}
	return false
}

// buildHighlightedString constructs the final string with color codes
func buildHighlightedString(text string, tokens []token) string {
	if len(tokens) == 0 {
		return text
	}

	// Sort tokens by start position
	sortTokens(tokens)

	var result []byte
	pos := 0

	for _, t := range tokens {
		// Add unhighlighted text before this token
		if t.start > pos {
			result = append(result, text[pos:t.start]...)
		}
		// Add highlighted token
		result = append(result, t.color.Sprint(t.text)...)
		pos = t.end
	}

	// Add remaining unhighlighted text
	if pos < len(text) {
		result = append(result, text[pos:]...)
	}

	return string(result)
}

// sortTokens sorts tokens by start position (simple insertion sort for small arrays)
func sortTokens(tokens []token) {
	for i := 1; i < len(tokens); i++ {
		key := tokens[i]
		j := i - 1
		for j >= 0 && tokens[j].start > key.start {
			tokens[j+1] = tokens[j]
			j--
		}
		tokens[j+1] = key
	}
}
