package fileio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV читает CSV с автоопределением кодировки и разделителя (; или ,).
// Шведский Excel сохраняет CSV в Windows-1252 с точкой с запятой.
func readCSV(r io.Reader, headerRow int) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if dec := detectDecoder(raw); dec != nil {
		raw, _, err = transform.Bytes(dec.NewDecoder(), raw)
		if err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = detectComma(raw)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return toTable(rows, headerRow), nil
}

// detectDecoder возвращает nil, если данные уже в UTF-8.
func detectDecoder(raw []byte) encoding.Encoding {
	if len(raw) == 0 || utf8.Valid(raw) {
		return nil
	}
	peek := raw[:min(len(raw), 4096)]
	det, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || det == nil {
		return charmap.Windows1252
	}
	switch strings.ToLower(det.Charset) {
	case "iso-8859-1":
		return charmap.ISO8859_1
	case "windows-1251", "cp1251":
		if det.Confidence >= 50 {
			return charmap.Windows1251
		}
	}
	// не UTF-8: значит, скорее всего, Excel под Windows
	return charmap.Windows1252
}

// detectComma смотрит на первую строку.
func detectComma(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
