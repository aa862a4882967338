// Package csvcodec reads and writes the CSV dialect used by CRM imports and
// exports: UTF-8 with a byte-order mark, CRLF record terminators, and
// RFC 4180 style quoting.
//
// The standard library's encoding/csv is close but not close enough: it does
// not quote fields with trailing whitespace and it rewrites CRLF inside quoted
// fields to LF, which breaks byte-exact round trips of free-text notes.
package csvcodec

import (
	"strings"
)

// BOM is the UTF-8 byte-order mark emitted at the start of every export so
// spreadsheet tools detect the encoding.
const BOM = "\ufeff"

// Format holds the formatting choices for a CSV document. It is passed
// explicitly to writers and formatters; there is no package-level mutable
// state.
type Format struct {
	Separator      string // Field separator (default ",")
	LineTerminator string // Record terminator (default "\r\n")
	WriteBOM       bool   // Emit BOM before the first record
	DateLayout     string // Layout for calendar dates
	DateTimeLayout string // Layout for timestamps
}

// DefaultFormat is the format used by all CRM exports.
var DefaultFormat = Format{
	Separator:      ",",
	LineTerminator: "\r\n",
	WriteBOM:       true,
	DateLayout:     "2006-01-02",
	DateTimeLayout: "2006-01-02 15:04:05",
}

// separator returns the configured separator, falling back to a comma.
func (f Format) separator() string {
	if f.Separator == "" {
		return ","
	}
	return f.Separator
}

// lineTerminator returns the configured terminator, falling back to CRLF.
func (f Format) lineTerminator() string {
	if f.LineTerminator == "" {
		return "\r\n"
	}
	return f.LineTerminator
}

// Escape quotes a field for output using the comma separator.
func Escape(field string) string {
	return DefaultFormat.Escape(field)
}

// Escape quotes a field if it contains the separator, a double quote, a
// newline or carriage return, or has leading or trailing whitespace.
// Internal double quotes are doubled.
func (f Format) Escape(field string) string {
	if !f.needsQuoting(field) {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func (f Format) needsQuoting(field string) bool {
	if field == "" {
		return false
	}
	if strings.Contains(field, f.separator()) || strings.ContainsAny(field, "\"\r\n") {
		return true
	}
	return strings.TrimSpace(field) != field
}

// JoinRecord escapes and joins fields into a single record without the
// line terminator.
func (f Format) JoinRecord(fields []string) string {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteString(f.separator())
		}
		b.WriteString(f.Escape(field))
	}
	return b.String()
}

// ParseLine splits a single logical CSV record into fields.
//
// Separators inside a quoted field do not split. Each field is trimmed, one
// layer of surrounding quotes is removed, and doubled quotes inside a quoted
// field collapse to one. A quote in the middle of an unquoted field is kept
// as text.
func ParseLine(line string) []string {
	return DefaultFormat.ParseLine(line)
}

// ParseLine splits a record using the format's separator.
func (f Format) ParseLine(line string) []string {
	raw, _ := splitRecord(line, f.separator())
	fields := make([]string, len(raw))
	for i, r := range raw {
		fields[i] = unquoteField(r)
	}
	return fields
}

// splitRecord splits line into raw fields on sep. A double quote opens a
// quoted field only when it is the first non-blank character of the field;
// inside a quoted field "" is an escaped quote. Quotes anywhere else are
// plain text. open reports whether the last quoted field is unterminated.
func splitRecord(line, sep string) (fields []string, open bool) {
	var (
		start      int
		fieldStart = true
		inQuote    bool
	)
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case inQuote:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					i += 2
					continue
				}
				inQuote = false
			}
			i++
		case strings.HasPrefix(line[i:], sep):
			fields = append(fields, line[start:i])
			i += len(sep)
			start = i
			fieldStart = true
		case fieldStart && (c == ' ' || c == '\t'):
			i++
		case fieldStart && c == '"':
			inQuote = true
			fieldStart = false
			i++
		default:
			fieldStart = false
			i++
		}
	}
	return append(fields, line[start:]), inQuote
}

// unquoteField trims a raw field and strips one layer of surrounding quotes.
func unquoteField(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// openQuote reports whether s ends inside a quoted field.
func (f Format) openQuote(s string) bool {
	_, open := splitRecord(s, f.separator())
	return open
}
