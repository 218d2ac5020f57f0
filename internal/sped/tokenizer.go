package sped

import "strings"

// Record is one tokenized SPED line: positional fields with the record type
// at index 0. Field access is permissive: out-of-range indexes yield "".
type Record struct {
	fields []string
}

// Type returns the record type (FIELD0), e.g. "C100".
func (r Record) Type() string {
	return r.Field(0)
}

// Field returns the field at position i, or "" when the record is shorter.
// SPED layouts are positional, so missing trailing fields are equivalent to
// empty ones.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Len returns the number of fields including the record type.
func (r Record) Len() int {
	return len(r.fields)
}

// Tokenize splits one raw line of `|FIELD0|FIELD1|...|FIELDN|` into a
// Record. The delimiter is never escaped inside fields. Returns ok=false
// for blank lines and lines that do not carry the leading pipe.
func Tokenize(line string) (Record, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Record{}, false
	}
	if !strings.HasPrefix(line, "|") {
		return Record{}, false
	}

	parts := strings.Split(line, "|")
	// Leading and trailing pipes produce empty first/last elements.
	parts = parts[1:]
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return Record{}, false
	}

	return Record{fields: parts}, true
}
