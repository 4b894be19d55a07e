package corpus

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads one worksheet whose first row is the header.
type XLSXSource struct {
	Path string
	// Sheet defaults to the first sheet in the workbook.
	Sheet string
}

// Name returns the file path, with the sheet when one is configured.
func (s *XLSXSource) Name() string {
	if s.Sheet != "" {
		return s.Path + "#" + s.Sheet
	}
	return s.Path
}

// Read loads the sheet's rows. Fully empty rows are dropped.
func (s *XLSXSource) Read(ctx context.Context) (*Table, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open Excel: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumns)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: get rows for sheet %q: %w", ErrSourceUnavailable, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMissingColumns, sheet)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &Table{Header: rows[0]}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
