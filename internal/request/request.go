// Package request parses the build request file: the null-delimited
// stream of declaration records collected from compiled object files.
package request

import (
	"bytes"
	"fmt"
	"strings"
)

// Parse splits raw request file contents into records. Records are
// separated by null bytes; leading whitespace is ignored and empty
// records are skipped. Field-count validation happens when a record is
// consumed, via Split.
func Parse(data []byte) []Record {
	var records []Record
	for _, chunk := range bytes.Split(data, []byte{0}) {
		text := strings.TrimLeft(string(chunk), " \t\r\n")
		if text == "" {
			continue
		}
		kind, rest := cutField(text)
		records = append(records, Record{Kind: kind, rest: rest})
	}
	return records
}

// Record is one build request directive: a kind token (for example
// "_DECL_COMMAND") plus its payload text.
type Record struct {
	Kind string
	rest string // payload after the kind token, internal spacing preserved
}

// Text returns the full payload after the kind token.
func (r Record) Text() string {
	return r.rest
}

// Fields returns the whitespace-separated payload tokens.
func (r Record) Fields() []string {
	return strings.Fields(r.rest)
}

// Split consumes exactly n leading fields and returns them together
// with the remaining payload text. The remainder keeps its original
// spacing, which matters for formats and static strings that embed
// spaces.
func (r Record) Split(n int) ([]string, string, error) {
	fields := make([]string, 0, n)
	rest := r.rest
	for i := 0; i < n; i++ {
		var f string
		f, rest = cutField(rest)
		if f == "" {
			return nil, "", fmt.Errorf("%s: expected %d fields, got %d", r.Kind, n, i)
		}
		fields = append(fields, f)
	}
	return fields, rest, nil
}

// cutField splits off the first whitespace-delimited token and trims
// the separator from the remainder.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := strings.IndexAny(s, " \t\r\n")
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeft(s[end:], " \t\r\n")
}
