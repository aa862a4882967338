package database

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause. Placeholders are
// numbered in the order conditions are added.
type WhereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = $n". Empty strings and zero ids are skipped.
func (wb *WhereBuilder) Add(col string, value interface{}) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case int64:
		if v == 0 {
			return
		}
	case nil:
		return
	}
	wb.AddCompare(col, "=", value)
}

// AddCompare appends "col <op> $n" unconditionally.
func (wb *WhereBuilder) AddCompare(col, op string, value interface{}) {
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s %s $%d", col, op, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddFold appends a case-insensitive equality on col. Empty values are skipped.
func (wb *WhereBuilder) AddFold(col, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("lower(%s) = lower($%d)", col, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddSearch appends an ILIKE match of query against any of cols, sharing a
// single placeholder. An empty query is skipped.
func (wb *WhereBuilder) AddSearch(query string, cols ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(cols) == 0 {
		return
	}
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
}

// AddRaw appends a literal condition with no arguments.
func (wb *WhereBuilder) AddRaw(cond string) {
	wb.conditions = append(wb.conditions, cond)
}

// Page appends LIMIT/OFFSET arguments and returns the clause suffix that
// references them. Call it after every condition and before Build.
// A non-positive limit or offset is omitted.
func (wb *WhereBuilder) Page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", wb.argIndex)
		wb.args = append(wb.args, limit)
		wb.argIndex++
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", wb.argIndex)
		wb.args = append(wb.args, offset)
		wb.argIndex++
	}
	return b.String()
}

// NextArgIndex returns the placeholder number the next argument will use.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause (with a leading " WHERE ") and its arguments.
// The clause is "" when no condition was added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.conditions) == 0 {
		return "", wb.args
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
