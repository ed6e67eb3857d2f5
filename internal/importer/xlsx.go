package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads the first worksheet of an Excel workbook.
type XLSXSource struct {
	r io.Reader
}

func NewXLSX(r io.Reader) *XLSXSource {
	return &XLSXSource{r: r}
}

func (s *XLSXSource) Rows() ([]Row, error) {
	f, err := excelize.OpenReader(s.r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFrom(records)
}
