package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	scraper "github.com/koizuka/abcreport"
)

// ReportDateHeader names the column every row is stamped with.
const ReportDateHeader = "Report Date"

// Dataset accumulates the rows of every scraped day.
// Headers are captured from the first day with a non-empty table, with ReportDateHeader appended.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

type ShapeMismatchError struct {
	Day  time.Time
	Want []string
	Got  []string
}

func (err ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: table columns changed from [%v] to [%v]",
		err.Day.Format(scraper.ReportDateLayout), strings.Join(err.Want, ", "), strings.Join(err.Got, ", "))
}

// Append stamps every row of table with day and adds them. An empty table leaves ds unchanged.
func (ds *Dataset) Append(day time.Time, table *scraper.Table) (int, error) {
	return ds.AppendPages(day, []*scraper.Table{table})
}

// AppendPages adds all pages of one day, or none of them when any page has a different shape.
func (ds *Dataset) AppendPages(day time.Time, pages []*scraper.Table) (int, error) {
	headers := ds.Headers
	for _, page := range pages {
		if len(page.Rows) == 0 {
			continue
		}
		if headers == nil {
			headers = append(slices.Clone(page.Headers), ReportDateHeader)
			continue
		}
		if !slices.Equal(headers[:len(headers)-1], page.Headers) {
			return 0, ShapeMismatchError{day, headers[:len(headers)-1], page.Headers}
		}
	}

	stamp := day.Format(scraper.ReportDateLayout)
	n := 0
	for _, page := range pages {
		for _, row := range page.Rows {
			ds.Rows = append(ds.Rows, append(slices.Clone(row), stamp))
			n++
		}
	}
	ds.Headers = headers
	return n, nil
}

func (ds *Dataset) Len() int {
	return len(ds.Rows)
}

// Records returns the rows keyed by header. Cells beyond the header count are dropped
// and missing cells are left out.
func (ds *Dataset) Records() []map[string]string {
	records := make([]map[string]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		record := make(map[string]string, len(ds.Headers))
		for i, h := range ds.Headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}
