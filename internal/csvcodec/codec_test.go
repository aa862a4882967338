package csvcodec

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value unchanged", "Acme", "Acme"},
		{"empty stays empty", "", ""},
		{"comma is quoted", "Acme, Inc", `"Acme, Inc"`},
		{"quote is doubled", `say "hi"`, `"say ""hi"""`},
		{"newline is quoted", "line1\nline2", "\"line1\nline2\""},
		{"carriage return is quoted", "a\rb", "\"a\rb\""},
		{"leading space is quoted", " padded", `" padded"`},
		{"trailing space is quoted", "padded ", `"padded "`},
		{"inner space unchanged", "two words", "two words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.input); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"simple", "a,b,c", []string{"a", "b", "c"}},
		{"trims fields", " a , b ,c ", []string{"a", "b", "c"}},
		{"quoted comma", `"Acme, Inc",x`, []string{"Acme, Inc", "x"}},
		{"doubled quotes collapse", `"say ""hi""",y`, []string{`say "hi"`, "y"}},
		{"empty fields kept", "a,,c,", []string{"a", "", "c", ""}},
		{"single field", "only", []string{"only"}},
		{"quoted whitespace kept", `" padded "`, []string{" padded "}},
		{"quote inside unquoted field is text", `Ada,wants 5" monitor,x`, []string{"Ada", `wants 5" monitor`, "x"}},
		{"quoted field after blanks", `a,  "b, c"`, []string{"a", "b, c"}},
		{"unterminated quote keeps text", `a,"open`, []string{"a", `"open`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestWriter_BOMAndCRLF(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultFormat)

	for _, rec := range [][]string{{"ID", "Name"}, {"1", "Jane, Doe"}} {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := BOM + "ID,Name\r\n1,\"Jane, Doe\"\r\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriter_NoBOM(t *testing.T) {
	var buf bytes.Buffer
	f := DefaultFormat
	f.WriteBOM = false
	f.LineTerminator = "\n"
	w := NewWriter(&buf, f)

	if err := w.Write([]string{"a", "b"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.String() != "a,b\n" {
		t.Errorf("output = %q, want %q", buf.String(), "a,b\n")
	}
}

func TestReader_RoundTrip(t *testing.T) {
	notes := []string{
		"has, comma",
		`has "quote"`,
		"has\nnewline",
		"has\r\ncrlf",
		"all, of \"them\"\nat once",
		" leading and trailing ",
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultFormat)
	if err := w.Write([]string{"id", "notes"}); err != nil {
		t.Fatal(err)
	}
	for i, n := range notes {
		if err := w.Write([]string{string(rune('a' + i)), n}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	header, err := r.Read()
	if err != nil {
		t.Fatalf("Read() header error = %v", err)
	}
	if !reflect.DeepEqual(header, []string{"id", "notes"}) {
		t.Fatalf("header = %q, BOM not skipped?", header)
	}

	for i, want := range notes {
		rec, err := r.Read()
		if err != nil {
			t.Fatalf("Read() record %d error = %v", i, err)
		}
		if len(rec) != 2 {
			t.Fatalf("record %d has %d fields, want 2: %q", i, len(rec), rec)
		}
		if rec[1] != want {
			t.Errorf("record %d notes = %q, want %q", i, rec[1], want)
		}
	}

	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("final Read() error = %v, want io.EOF", err)
	}
}

func TestReader_LastLineWithoutTerminator(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\nc,d"))

	var got [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, rec)
	}

	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %q, want %q", got, want)
	}
	if r.Line() != 2 {
		t.Errorf("Line() = %d, want 2", r.Line())
	}
}

func TestReader_EmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
}

func readAll(t *testing.T, r *Reader) [][]string {
	t.Helper()
	var got [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return got
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, rec)
	}
}

func TestReader_StrayQuoteDoesNotJoinLines(t *testing.T) {
	input := "name,notes\nAda,wants 5\" monitor\nBob,ok\nCy,fine\n"
	r := NewReader(strings.NewReader(input))

	got := readAll(t, r)
	want := [][]string{{"name", "notes"}, {"Ada", `wants 5" monitor`}, {"Bob", "ok"}, {"Cy", "fine"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %q, want %q", got, want)
	}
	if r.Line() != 4 {
		t.Errorf("Line() = %d, want 4", r.Line())
	}
}

func TestReader_UnterminatedQuoteAtEOF(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
		lines int
	}{
		{
			name:  "later lines read one per record",
			input: "a,\"open\nb,c\nd,e\n",
			want:  [][]string{{"a", `"open`}, {"b", "c"}, {"d", "e"}},
			lines: 3,
		},
		{
			name:  "no trailing newline",
			input: "a,\"open\nb,c",
			want:  [][]string{{"a", `"open`}, {"b", "c"}},
			lines: 2,
		},
		{
			name:  "single unterminated line",
			input: "a,\"open",
			want:  [][]string{{"a", `"open`}},
			lines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))
			got := readAll(t, r)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("records = %q, want %q", got, tt.want)
			}
			if r.Line() != tt.lines {
				t.Errorf("Line() = %d, want %d", r.Line(), tt.lines)
			}
		})
	}
}
