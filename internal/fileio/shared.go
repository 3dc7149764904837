package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"helpdesk-transfer/internal/transfer/model"
)

// FileType: формат загружаемого файла.
type FileType string

const (
	FileCSV   FileType = "csv"
	FileExcel FileType = "excel"
	FileJSON  FileType = "json"
)

var ErrUnsupported = errors.New("unsupported file type")

// Table: разобранный файл, заголовки в порядке колонок и строки.
// Пустые ячейки в строку не попадают.
type Table struct {
	Headers []string
	Rows    []model.RawRow
}

// DetectFileType по расширению; "": формат не поддерживается.
func DetectFileType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileCSV
	case ".xlsx", ".xls":
		return FileExcel
	case ".json":
		return FileJSON
	}
	return ""
}

// Read выбирает парсер по расширению. headerRow: номер строки заголовков
// (1-based), для JSON не используется.
func Read(r io.Reader, filename string, headerRow int) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r, headerRow)
	case ".xls":
		return readXLS(r, headerRow)
	case ".csv":
		return readCSV(r, headerRow)
	case ".json":
		return readJSON(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

// pickHeader: берёт строку заголовков, подставляет "Kolumn N" для пустых
// и добавляет суффикс к повторам ("Namn", "Namn 2").
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx < 0 || idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = normalizeCell(v)
		if v == "" {
			v = fmt.Sprintf("Kolumn %d", i+1)
		}
		seen[v]++
		if n := seen[v]; n > 1 {
			v = fmt.Sprintf("%s %d", v, n)
		}
		out[i] = v
	}
	return out
}

// toTable: конвертирует AoA в строки по заголовкам, пропуская полностью пустые.
func toTable(rows [][]string, headerRow int) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	headers := pickHeader(rows, headerRow)
	start := max(headerRow, 1) // первая строка после заголовков

	t := &Table{Headers: headers}
	for r := start; r < len(rows); r++ {
		rec := rows[r]
		row := model.RawRow{}
		for c := 0; c < len(headers) && c < len(rec); c++ {
			if v := normalizeCell(rec[c]); v != "" {
				row[headers[c]] = v
			}
		}
		if len(row) > 0 {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// normalizeCell: NBSP/NNBSP -> пробел, обрезка по краям.
func normalizeCell(s string) string {
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ").Replace(s)
	return strings.TrimSpace(s)
}
