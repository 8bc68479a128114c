package kyanite

import "strings"

// A Splitter splits records into 1-indexed fields and joins ranges of
// them back together. The zero value splits on runs of spaces and tabs,
// trimming the ends and collapsing interior runs; joins then use a
// single space.
type Splitter struct {
	// Sep is the literal field separator. When set, splits are exact:
	// adjacent separators yield empty fields and nothing is trimmed.
	Sep string
}

func isBlank(r rune) bool { return r == ' ' || r == '\t' }

// Split returns the record's fields.
func (s Splitter) Split(text string) []string {
	if s.Sep == "" {
		return strings.FieldsFunc(text, isBlank)
	}
	return strings.Split(text, s.Sep)
}

// Join reassembles fields with the configured separator.
func (s Splitter) Join(fields []string) string {
	if s.Sep == "" {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields, s.Sep)
}
