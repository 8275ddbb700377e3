package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// SheetName is the worksheet XLSX output is written to.
const SheetName = "Report"

// ParseFormats parses a comma separated list such as "csv,json".
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := map[Format]bool{}
	for _, f := range strings.Split(s, ",") {
		format := Format(strings.ToLower(strings.TrimSpace(f)))
		switch format {
		case "":
			continue
		case CSV, JSON, XLSX:
		default:
			return nil, fmt.Errorf("unknown output format %q (want csv, json or xlsx)", f)
		}
		if !seen[format] {
			seen[format] = true
			formats = append(formats, format)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output format in %q", s)
	}
	return formats, nil
}

// Filename names the output of a run over start..end.
func Filename(start, end time.Time, format Format) string {
	return fmt.Sprintf("license_report_%v_%v.%v", start.Format("2006-01-02"), end.Format("2006-01-02"), format)
}

// WriteError is returned for any failure creating or writing an output file.
type WriteError struct {
	Path string
	Err  error
}

func (err WriteError) Error() string {
	return fmt.Sprintf("couldn't write %v: %v", err.Path, err.Err)
}

func (err WriteError) Unwrap() error { return err.Err }

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, WriteError{path, err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, WriteError{path, err}
	}
	return f, nil
}

// Write saves headers and rows to path in format.
func Write(path string, format Format, headers []string, rows [][]string) error {
	switch format {
	case CSV:
		return WriteCSVFile(path, headers, rows)
	case JSON:
		return WriteJSONFile(path, headers, rows)
	case XLSX:
		return WriteXLSXFile(path, headers, rows)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func WriteCSVFile(path string, headers []string, rows [][]string) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		f.Close()
		return WriteError{path, err}
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return WriteError{path, err}
	}
	if err := f.Close(); err != nil {
		return WriteError{path, err}
	}
	return nil
}

// orderedRecord marshals a row as a JSON object whose keys follow the header order.
type orderedRecord struct {
	headers []string
	row     []string
}

func (r orderedRecord) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, h := range r.headers {
		if i >= len(r.row) {
			break
		}
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := marshalString(h)
		if err != nil {
			return nil, err
		}
		value, err := marshalString(r.row[i])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteJSONFile writes an array with one object per row, keyed by header.
func WriteJSONFile(path string, headers []string, rows [][]string) error {
	records := make([]orderedRecord, len(rows))
	for i, row := range rows {
		records[i] = orderedRecord{headers, row}
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		f.Close()
		return WriteError{path, err}
	}
	if err := f.Close(); err != nil {
		return WriteError{path, err}
	}
	return nil
}

func WriteXLSXFile(path string, headers []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return WriteError{path, err}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return WriteError{path, err}
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return WriteError{path, err}
	}
	if err := sw.SetRow("A1", cells(headers)); err != nil {
		return WriteError{path, err}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return WriteError{path, err}
		}
	}
	if err := sw.Flush(); err != nil {
		return WriteError{path, err}
	}
	if err := f.SaveAs(path); err != nil {
		return WriteError{path, err}
	}
	return nil
}

func cells(row []string) []interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return values
}
