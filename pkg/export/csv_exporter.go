package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gocarina/gocsv"
)

// TimetableRow is one placed session in a flat export.
type TimetableRow struct {
	Day       string `csv:"day"`
	Start     string `csv:"start"`
	End       string `csv:"end"`
	Subject   string `csv:"subject"`
	Kind      string `csv:"kind"`
	Teacher   string `csv:"teacher"`
	Group     string `csv:"group"`
	Track     string `csv:"track"`
	Room      string `csv:"room"`
	Headcount int    `csv:"headcount"`
	Phase     string `csv:"phase"`
}

// CSVExporter renders timetable rows into CSV bytes.
type CSVExporter struct {
	delim rune
}

// NewCSVExporter builds a CSV exporter. A zero delimiter means comma.
func NewCSVExporter(delim rune) *CSVExporter {
	if delim == 0 {
		delim = ','
	}
	return &CSVExporter{delim: delim}
}

// Render produces CSV encoded bytes with a header line.
func (e *CSVExporter) Render(rows []TimetableRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv requires at least one row")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.delim
	safe := gocsv.NewSafeCSVWriter(writer)
	if err := gocsv.MarshalCSV(&rows, safe); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	safe.Flush()
	if err := safe.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
