package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune   // default ','
	Charset   string // IANA name, e.g. "windows-1252"; empty = UTF-8
}

// ReadCSV parses a CSV file into a Dataset. The first row is the header.
func ReadCSV(path string, opts CSVOptions) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, eris.Wrap(err, "csv: open file")
	}
	defer func() { _ = f.Close() }()

	return ReadCSVFrom(f, opts)
}

// ReadCSVFrom parses CSV data from r. Rows may have variable width;
// alignment against the header happens during validation.
func ReadCSVFrom(r io.Reader, opts CSVOptions) (Dataset, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return Dataset{}, eris.Wrapf(err, "csv: unknown charset %q", opts.Charset)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	var ds Dataset
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			return Dataset{}, eris.Wrap(err, "csv: read row")
		}
		if first {
			first = false
			// Strip a UTF-8 BOM so the first header name matches.
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
			ds.Headers = record
			continue
		}
		ds.Rows = append(ds.Rows, record)
	}
}
