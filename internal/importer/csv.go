package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// CSVSource reads comma-separated files with a header row. Rows may have
// fewer or more fields than the header.
type CSVSource struct {
	r io.Reader
}

func NewCSV(r io.Reader) *CSVSource {
	return &CSVSource{r: r}
}

func (s *CSVSource) Rows() ([]Row, error) {
	reader := csv.NewReader(s.r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return rowsFrom(records)
}
