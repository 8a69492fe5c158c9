package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular document. Summary lines are rendered after the
// body as label/value pairs.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
	Summary [][2]string
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

// CSVExporter renders tables into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes. Summary lines follow a blank record.
func (e *CSVExporter) Render(t Table) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	if len(t.Summary) > 0 {
		_ = writer.Write([]string{})
		for _, line := range t.Summary {
			if err := writer.Write([]string{line[0], line[1]}); err != nil {
				return nil, fmt.Errorf("write csv summary: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
