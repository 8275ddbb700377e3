package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Table is one rendered page of the report table.
type Table struct {
	Headers []string
	Rows    [][]string
}

type tableMarkup struct {
	Headers []string    `find:"thead tr th"`
	Rows    []rowMarkup `find:"tbody tr"`
}

type rowMarkup struct {
	Empty *string  `find:"td.dataTables_empty"`
	Cells []string `find:"td, th"`
}

// PageInfo is the DataTables "Showing 1 to 100 of 237 entries" line.
type PageInfo struct {
	From  int `re:"Showing ([0-9,]+) to"`
	To    int `re:"to ([0-9,]+) of"`
	Total int `re:"of ([0-9,]+) entries"`
}

// AllShown reports whether the current page already holds every entry of the table.
func (info PageInfo) AllShown() bool {
	return info.From <= 1 && info.To >= info.Total
}

// ParseTable reads the header and body rows of the table matched by sel.
// Line breaks (<br>) inside cells are kept as "\n"; the DataTables placeholder
// row shown for an empty table is skipped.
func ParseTable(sel *goquery.Selection) (*Table, error) {
	if sel.Length() != 1 {
		return nil, fmt.Errorf("table: found %v items", sel.Length())
	}
	sel = sel.Clone()
	sel.Find("br").ReplaceWithHtml("\n")

	var markup tableMarkup
	if err := Unmarshal(&markup, sel, UnmarshalOption{}); err != nil {
		return nil, err
	}

	table := &Table{Headers: make([]string, len(markup.Headers))}
	for i, h := range markup.Headers {
		table.Headers[i] = normalizeCell(h)
	}
	for _, row := range markup.Rows {
		if row.Empty != nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = normalizeCell(c)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// normalizeCell mimics innerText: each line is trimmed and blank lines are dropped.
// Runs of spaces inside a line are kept since they separate DBA from applicant.
func normalizeCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// HasNoDataSentinel reports whether the page shows the "no new applications" message.
func (site ReportSite) HasNoDataSentinel(doc *goquery.Selection) bool {
	return doc.Find(site.NoDataSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == site.NoDataText
	}).Length() > 0
}

// HasTableRows reports whether the report table is rendered with at least one data row.
func (site ReportSite) HasTableRows(doc *goquery.Selection) bool {
	return doc.Find(site.rowSelector()).Not(":has(td.dataTables_empty)").Length() > 0
}

// NextEnabled reports whether the Next pager control exists and is not disabled.
func (site ReportSite) NextEnabled(doc *goquery.Selection) bool {
	next := doc.Find(site.Next)
	return next.Length() > 0 && !next.HasClass("disabled")
}

func (site ReportSite) PageInfo(doc *goquery.Selection) (PageInfo, bool) {
	var info PageInfo
	sel := doc.Find(site.Info)
	if sel.Length() != 1 {
		return info, false
	}
	if err := Unmarshal(&info, sel, UnmarshalOption{}); err != nil {
		return info, false
	}
	return info, true
}
