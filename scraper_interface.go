package scraper

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultTimeout is the default timeout for navigation and element waiting
	DefaultTimeout = 30 * time.Second
	// DefaultDownloadTimeout is the default timeout for file downloads
	DefaultDownloadTimeout = 60 * time.Second
	// DefaultPollInterval is how often readiness conditions are re-checked
	DefaultPollInterval = 250 * time.Millisecond
)

// LoadMode selects how the report page is pointed at a given day.
type LoadMode string

const (
	// DatePickerMode types the date into the page's date picker and submits it.
	DatePickerMode LoadMode = "datepicker"
	// QueryMode opens the report URL with RPTTYPE/RPTDATE query parameters.
	QueryMode LoadMode = "query"
	// DownloadMode loads like DatePickerMode, then saves the table through the site's CSV button.
	DownloadMode LoadMode = "download"
)

func ParseLoadMode(s string) (LoadMode, error) {
	switch mode := LoadMode(s); mode {
	case DatePickerMode, QueryMode, DownloadMode:
		return mode, nil
	}
	return "", fmt.Errorf("unknown load mode %q (want datepicker, query or download)", s)
}

// LoadResult is the state a report page settles in after loading a day.
type LoadResult int

const (
	// NoDataDetected means the "no new applications" sentinel is shown.
	NoDataDetected LoadResult = iota
	// TableFound means the results table has at least one row.
	TableFound
)

func (r LoadResult) String() string {
	switch r {
	case NoDataDetected:
		return "NoDataDetected"
	case TableFound:
		return "TableFound"
	}
	return fmt.Sprintf("LoadResult(%d)", int(r))
}

// ReportScraper provides a common interface for both traditional HTTP-based scraping
// and Chrome-based browser automation of the daily report page.
//
// Example usage:
//
//	var rs ReportScraper = chromeSession.Report(site, DatePickerMode) // or session.Report(site)
//	result, err := rs.Load(ctx, day)
//	if result == TableFound {
//		table, _ := rs.ReadTable(ctx)
//		more, _ := rs.NextPage(ctx)
//	}
//
// The interface abstracts the differences between HTTP and browser-based scraping:
// - HTTP scraping: the server rendered table is read whole, NextPage always reports false
// - Chrome scraping: DataTables pagination is driven by clicking the Next control
type ReportScraper interface {
	// Load points the page at day and waits until it shows either the sentinel or the table.
	Load(ctx context.Context, day time.Time) (LoadResult, error)
	// ReadTable returns the header and rows currently rendered.
	ReadTable(ctx context.Context) (*Table, error)
	// NextPage advances the pager. It returns false when there is no further page.
	NextPage(ctx context.Context) (bool, error)

	Printf(format string, a ...interface{})
}

// ReportDownloader is implemented by backends able to save the site's own CSV export.
type ReportDownloader interface {
	// DownloadCSV loads day and returns the path of the downloaded CSV file.
	// ok is false when the day has no data.
	DownloadCSV(ctx context.Context, day time.Time) (filename string, ok bool, err error)
}

// ScraperType indicates which underlying scraping mechanism is being used
type ScraperType int

const (
	HTTPScraper ScraperType = iota
	ChromeScraper
)

func (t ScraperType) String() string {
	if t == ChromeScraper {
		return "chrome"
	}
	return "http"
}

// GetScraperType returns the type of scraper being used
func GetScraperType(scraper ReportScraper) ScraperType {
	switch scraper.(type) {
	case *ChromeReport:
		return ChromeScraper
	default:
		return HTTPScraper
	}
}
