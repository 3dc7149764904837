package fileio

import (
	"io"

	excelize "github.com/xuri/excelize/v2"
)

// readXLSX читает первый видимый лист книги построчно.
func readXLSX(r io.Reader, headerRow int) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	it, err := f.Rows(firstVisibleSheet(f))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows [][]string
	for it.Next() {
		cols, err := it.Columns()
		if err != nil {
			return nil, err
		}
		rows = append(rows, cols)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return toTable(rows, headerRow), nil
}

func firstVisibleSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		if visible, err := f.GetSheetVisible(name); err == nil && visible {
			return name
		}
	}
	return f.GetSheetName(0)
}
