package output

import (
	"fmt"
	"slices"
	"strings"
	"time"

	scraper "github.com/koizuka/abcreport"
	"golang.org/x/text/encoding"
)

type HeaderMismatchError struct {
	File      string
	Want, Got []string
}

func (err HeaderMismatchError) Error() string {
	return fmt.Sprintf("%v: header [%v] differs from [%v]", err.File, strings.Join(err.Got, ", "), strings.Join(err.Want, ", "))
}

// Concat reads CSV files sharing one header row and joins their data rows.
// When sortColumn is set, rows are stably sorted by that column, see SortRows.
func Concat(files []string, enc encoding.Encoding, sortColumn string) ([]string, [][]string, error) {
	var headers []string
	var rows [][]string
	for _, file := range files {
		records, err := scraper.ReadCSVFile(file, enc)
		if err != nil {
			return nil, nil, err
		}
		if len(records) == 0 {
			continue
		}
		if headers == nil {
			headers = records[0]
		} else if !slices.Equal(headers, records[0]) {
			return nil, nil, HeaderMismatchError{file, headers, records[0]}
		}
		rows = append(rows, records[1:]...)
	}

	if sortColumn != "" && headers != nil {
		if err := SortRows(headers, rows, sortColumn); err != nil {
			return nil, nil, err
		}
	}
	return headers, rows, nil
}

// SortRows stably sorts rows by column. Two values in the report date layout compare as
// dates, so "June 09, 2024" comes before "July 01, 2024" where a plain text sort would put
// July first. Any other pair of values compares as text.
func SortRows(headers []string, rows [][]string, column string) error {
	col := slices.Index(headers, column)
	if col < 0 {
		return fmt.Errorf("no column %q to sort by", column)
	}
	slices.SortStableFunc(rows, func(a, b []string) int {
		x, y := cell(a, col), cell(b, col)
		tx, errX := time.Parse(scraper.ReportDateLayout, x)
		ty, errY := time.Parse(scraper.ReportDateLayout, y)
		if errX == nil && errY == nil {
			return tx.Compare(ty)
		}
		return strings.Compare(x, y)
	})
	return nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ConcatFile joins files into dest in format and returns the number of data rows written.
func ConcatFile(dest string, format Format, files []string, enc encoding.Encoding, sortColumn string) (int, error) {
	headers, rows, err := Concat(files, enc, sortColumn)
	if err != nil {
		return 0, err
	}
	if headers == nil {
		return 0, fmt.Errorf("nothing to merge: all %v files are empty", len(files))
	}
	return len(rows), Write(dest, format, headers, rows)
}
