// Package staging converts tables to and from the CSV transport format used
// between the object store and the query engine, and manages the local
// temporary artifacts that transport needs.
package staging

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/pkg/utils"
)

// ContentType is the object store content type of staged payloads.
const ContentType = "text/csv"

// ErrMalformedStagingData is returned when a payload cannot be parsed as CSV
// with a consistent header.
var ErrMalformedStagingData = errors.New("malformed staging data")

// ErrUnrepresentable is returned by Encode for a table that would not decode
// back to itself: a string column whose every non-blank cell reads as a
// number, a nil cell in a string column, a numeric column with no values, or
// a header Decode would reject or rewrite.
var ErrUnrepresentable = errors.New("table not representable as staging data")

// Encode writes the table as CSV: a header row followed by one row per record.
// Tables that cannot survive Decode unchanged are rejected with ErrUnrepresentable.
func Encode(t *model.Table) ([]byte, error) {
	if err := checkRepresentable(t); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.ColumnNames()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(t.Columns))
		}
		for j, v := range row {
			cell, err := formatCell(v, t.Columns[j].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, t.Columns[j].Name, err)
			}
			record[j] = cell
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// checkRepresentable mirrors the inference DecodeReader applies.
func checkRepresentable(t *model.Table) error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" || c.Name != strings.TrimSpace(c.Name) {
			return fmt.Errorf("%w: column name %q", ErrUnrepresentable, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrUnrepresentable, c.Name)
		}
		seen[c.Name] = true
	}

	for j, c := range t.Columns {
		var numbers, texts int
		for i, row := range t.Rows {
			if j >= len(row) {
				continue // reported by Encode
			}
			v := row[j]
			if v == nil {
				if c.Type == model.TypeString {
					return fmt.Errorf("%w: row %d column %s: nil in a string column reads back as \"\"",
						ErrUnrepresentable, i, c.Name)
				}
				continue
			}
			if c.Type != model.TypeString {
				numbers++
				continue
			}
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprintf("%v", v)
			}
			switch utils.ParseValue(s).(type) {
			case nil:
			case string:
				texts++
			default:
				numbers++
			}
		}

		switch {
		case c.Type == model.TypeString && numbers > 0 && texts == 0:
			return fmt.Errorf("%w: column %s: every value reads as a number", ErrUnrepresentable, c.Name)
		case c.Type != model.TypeString && numbers == 0:
			return fmt.Errorf("%w: %s column %s has no values", ErrUnrepresentable, c.Type, c.Name)
		}
	}
	return nil
}

func formatCell(v any, typ model.ColumnType) (string, error) {
	if v == nil {
		return "", nil
	}
	switch typ {
	case model.TypeInteger:
		if i, ok := v.(int64); ok {
			return strconv.FormatInt(i, 10), nil
		}
		if i, ok := v.(int); ok {
			return strconv.Itoa(i), nil
		}
	case model.TypeFloat:
		if f, ok := utils.Numeric(v); ok {
			return utils.FormatFloat(f), nil
		}
	case model.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	}
	return "", fmt.Errorf("value %v (%T) does not fit a %s column", v, v, typ)
}

// Decode parses a CSV payload back into a typed table.
func Decode(data []byte) (*model.Table, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader parses CSV from r. Column types are inferred from content,
// widening integer -> float -> string over every non-empty cell. Quoted fields
// may carry delimiters, quotes and newlines; anything else malformed fails
// with ErrMalformedStagingData.
func DecodeReader(r io.Reader) (*model.Table, error) {
	csvReader := csv.NewReader(r)
	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedStagingData)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformedStagingData, err)
	}

	seen := make(map[string]bool, len(headers))
	columns := make([]model.Column, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", ErrMalformedStagingData, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedStagingData, name)
		}
		seen[name] = true
		columns[i] = model.Column{Name: name, Type: model.TypeInteger}
	}

	var raw [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStagingData, err)
		}
		raw = append(raw, record)
	}

	// an all-empty column has nothing to infer from
	nonEmpty := make([]bool, len(columns))
	for _, record := range raw {
		for j, cell := range record {
			v := utils.ParseValue(cell)
			if v == nil {
				continue
			}
			nonEmpty[j] = true
			columns[j].Type = widen(columns[j].Type, v)
		}
	}
	for j := range columns {
		if !nonEmpty[j] {
			columns[j].Type = model.TypeString
		}
	}

	t := &model.Table{Columns: columns, Rows: make([]model.Row, 0, len(raw))}
	for _, record := range raw {
		row := make(model.Row, len(record))
		for j, cell := range record {
			row[j] = convertCell(cell, columns[j].Type)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func widen(current model.ColumnType, v any) model.ColumnType {
	switch v.(type) {
	case int64:
		return current
	case float64:
		if current == model.TypeInteger {
			return model.TypeFloat
		}
		return current
	default:
		return model.TypeString
	}
}

func convertCell(cell string, typ model.ColumnType) any {
	if typ == model.TypeString {
		return cell
	}
	v := utils.ParseValue(cell)
	if v == nil {
		return nil
	}
	if typ == model.TypeFloat {
		f, _ := utils.Numeric(v)
		return f
	}
	return v
}
