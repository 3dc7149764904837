package fileio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	excelize "github.com/xuri/excelize/v2"
)

// ExportFormat: формат выгрузки.
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportExcel ExportFormat = "excel"
	ExportJSON  ExportFormat = "json"
)

func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(s) {
	case ExportCSV, ExportExcel, ExportJSON:
		return ExportFormat(s), true
	case "xlsx":
		return ExportExcel, true
	}
	return "", false
}

func (f ExportFormat) ContentType() string {
	switch f {
	case ExportExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportJSON:
		return "application/json; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

func (f ExportFormat) Extension() string {
	if f == ExportExcel {
		return ".xlsx"
	}
	return "." + string(f)
}

// Write пишет записи в выбранном формате. Колонки задают порядок.
func Write(w io.Writer, format ExportFormat, sheet string, columns []string, records []map[string]any) error {
	switch format {
	case ExportCSV:
		return WriteCSV(w, columns, records)
	case ExportExcel:
		return WriteXLSX(w, sheet, columns, records)
	case ExportJSON:
		return WriteJSON(w, columns, records)
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, format)
}

// WriteCSV: UTF-8 с BOM, чтобы Excel открыл åäö без вопросов.
func WriteCSV(w io.Writer, columns []string, records []map[string]any) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	line := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			line[i] = cellString(rec[c])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX: один лист, жирная шапка на сером фоне.
func WriteXLSX(w io.Writer, sheet string, columns []string, records []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Export"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		return err
	}
	if len(columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(columns))
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return err
		}
	}

	for i, rec := range records {
		vals := make([]any, len(columns))
		for j, c := range columns {
			vals[j] = cellValue(rec[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// WriteJSON: массив объектов с отступами; ключи в порядке колонок.
func WriteJSON(w io.Writer, columns []string, records []map[string]any) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, c := range columns {
			if j > 0 {
				buf.WriteString(",")
			}
			k, _ := json.Marshal(c)
			v, err := json.Marshal(rec[c])
			if err != nil {
				return fmt.Errorf("json: column %s: %w", c, err)
			}
			buf.WriteString("\n    ")
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
		}
		buf.WriteString("\n  }")
	}
	if len(records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// cellValue: числа и bool остаются типизированными, вложенное пишется как JSON.
func cellValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return v
	}
	return cellString(v)
}
