package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM returns a reader positioned after a leading UTF-8 byte order
// mark, if there is one. The processed files are written as utf-8-sig.
func StripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
}

// Row is one data row and the file line it starts on.
type Row struct {
	Line   int
	Fields []string
}

// CSVStream is a header plus the rows after it. Err yields at most one
// error and is closed after Rows.
type CSVStream struct {
	Header []string
	Rows   <-chan Row
	Err    <-chan error
}

// StreamCSV reads the header row, then streams the remaining rows from a
// goroutine. The caller must drain Rows. An empty input has a nil header
// and closed channels. Rows may differ in length from the header.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*CSVStream, error) {
	reader := csv.NewReader(StripBOM(r))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	read := func() ([]string, error) {
		fields, err := reader.Read()
		if err == nil && opts.TrimSpace {
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
		}
		return fields, err
	}

	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)
	stream := &CSVStream{Rows: rowCh, Err: errCh}

	header, err := read()
	if err == io.EOF {
		close(rowCh)
		close(errCh)
		return stream, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	stream.Header = header

	go func() {
		defer close(errCh)
		defer close(rowCh)

		for {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrap(err, "csv: cancelled")
				return
			}
			fields, err := read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			line, _ := reader.FieldPos(0)
			select {
			case rowCh <- Row{Line: line, Fields: fields}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()
	return stream, nil
}
