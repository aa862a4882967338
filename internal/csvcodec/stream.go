package csvcodec

// stream.go provides the streaming reader and writer on top of the codec.
//
//   - Writer: emits the BOM once, escapes fields, terminates records
//   - Reader: skips a leading BOM and joins physical lines while a quoted
//     field is still open, so embedded newlines survive a round trip. A
//     quoted field still open at EOF is treated as a stray quote: the
//     buffered lines are read again one record per line.

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Writer writes CSV records in a given Format.
type Writer struct {
	w       *bufio.Writer
	format  Format
	started bool
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{
		w:      bufio.NewWriter(w),
		format: format,
	}
}

// Write writes a single record. The BOM precedes the first record when the
// format asks for it.
func (w *Writer) Write(record []string) error {
	if !w.started {
		w.started = true
		if w.format.WriteBOM {
			if _, err := w.w.WriteString(BOM); err != nil {
				return err
			}
		}
	}
	if _, err := w.w.WriteString(w.format.JoinRecord(record)); err != nil {
		return err
	}
	_, err := w.w.WriteString(w.format.lineTerminator())
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader reads logical CSV records.
type Reader struct {
	r       *bufio.Reader
	format  Format
	started bool
	line    int // physical lines consumed
}

// NewReader returns a Reader over r using the default format.
func NewReader(r io.Reader) *Reader {
	return NewReaderFormat(r, DefaultFormat)
}

// NewReaderFormat returns a Reader over r using the given format.
func NewReaderFormat(r io.Reader, format Format) *Reader {
	return &Reader{
		r:      bufio.NewReader(r),
		format: format,
	}
}

// Line returns the number of physical lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// ReadRaw returns the next logical record as text without its terminator.
// A record spans several physical lines when a quoted field contains a
// newline; those inner newlines are returned unchanged. Returns io.EOF when
// no data remains.
func (r *Reader) ReadRaw() (string, error) {
	if !r.started {
		r.started = true
		if err := r.skipBOM(); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for {
		chunk, err := r.r.ReadString('\n')
		if chunk != "" {
			r.line++
			b.WriteString(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return r.unterminated(b.String()), nil
			}
			return "", err
		}
		if !r.format.openQuote(b.String()) {
			return trimTerminator(b.String()), nil
		}
	}
}

// unterminated handles text that reached EOF. If it spans several lines
// because of an unclosed quote, only the first line is returned and the
// rest is queued to be read again.
func (r *Reader) unterminated(s string) string {
	first, rest, found := strings.Cut(s, "\n")
	if !found || rest == "" || !r.format.openQuote(s) {
		return trimTerminator(s)
	}
	r.line -= strings.Count(rest, "\n")
	if !strings.HasSuffix(rest, "\n") {
		r.line--
	}
	r.r = bufio.NewReader(strings.NewReader(rest))
	return trimTerminator(first)
}

// Read returns the next record split into fields.
func (r *Reader) Read() ([]string, error) {
	raw, err := r.ReadRaw()
	if err != nil {
		return nil, err
	}
	return r.format.ParseLine(raw), nil
}

// skipBOM consumes a leading UTF-8 byte-order mark if present.
func (r *Reader) skipBOM() error {
	peek, err := r.r.Peek(len(BOM))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return err
	}
	if string(peek) == BOM {
		_, _ = r.r.Discard(len(BOM))
	}
	return nil
}

// trimTerminator strips one trailing LF or CRLF.
func trimTerminator(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
