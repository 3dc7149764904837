package fileio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"helpdesk-transfer/internal/transfer/model"
)

// readJSON принимает массив объектов либо объект, в котором первое
// свойство-массив содержит записи. Порядок ключей сохраняется в Headers.
func readJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		return readJSONArray(dec)
	case json.Delim('{'):
		for dec.More() {
			if _, err := dec.Token(); err != nil { // ключ
				return nil, fmt.Errorf("json: %w", err)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
			if b := bytes.TrimSpace(raw); len(b) > 0 && b[0] == '[' {
				inner := json.NewDecoder(bytes.NewReader(b))
				if _, err := inner.Token(); err != nil {
					return nil, fmt.Errorf("json: %w", err)
				}
				return readJSONArray(inner)
			}
		}
		return nil, errors.New("json: no array of records found")
	}
	return nil, errors.New("json: expected an array or an object")
}

// readJSONArray: '[' уже прочитан.
func readJSONArray(dec *json.Decoder) (*Table, error) {
	t := &Table{}
	seen := map[string]bool{}
	for n := 1; dec.More(); n++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("json: record %d is not an object", n)
		}
		row := model.RawRow{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
			key, _ := kt.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("json: record %d: %w", n, err)
			}
			if !seen[key] {
				seen[key] = true
				t.Headers = append(t.Headers, key)
			}
			if v != nil {
				row[key] = v
			}
		}
		if _, err := dec.Token(); err != nil { // '}'
			return nil, fmt.Errorf("json: %w", err)
		}
		if len(row) > 0 {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}
