package scraper

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultReportPageURL = "https://www.abc.ca.gov/licensing/licensing-reports/new-applications/"
	NoDataSentinelText   = "There were no new applications taken on the selected report date."

	// ReportDateLayout is how the site prints report dates, and how rows are stamped.
	ReportDateLayout = "January 02, 2006"
	// DefaultQueryDateLayout formats the RPTDATE query parameter.
	DefaultQueryDateLayout = "2006-01-02"
	// reportTypeNewApplications is the RPTTYPE value of the daily new applications report.
	reportTypeNewApplications = "2"
)

// ReportSite holds the URL and selectors of the daily licensing report page.
type ReportSite struct {
	PageURL         string
	DatePicker      string // text input of the jQuery UI date picker
	Calendar        string // popup shown after clicking DatePicker
	Submit          string
	Table           string
	Next            string // DataTables "Next" pager control
	Info            string // DataTables "Showing x to y of z entries"
	LengthSelect    string
	PageLength      int // 0 keeps the site's default page size
	NoDataSelector  string
	NoDataText      string
	DownloadButton  string
	QueryDateLayout string
}

func DefaultReportSite() ReportSite {
	return ReportSite{
		PageURL:         DefaultReportPageURL,
		DatePicker:      "#daily-report-datepicker",
		Calendar:        ".ui-datepicker-calendar",
		Submit:          "#daily-report-submit",
		Table:           "#license_report",
		Next:            "#license_report_next",
		Info:            "#license_report_info",
		LengthSelect:    `select[name="license_report_length"]`,
		PageLength:      100,
		NoDataSelector:  ".et_pb_code_inner",
		NoDataText:      NoDataSentinelText,
		DownloadButton:  "#license_report_wrapper .dt-buttons button:first-child",
		QueryDateLayout: DefaultQueryDateLayout,
	}
}

// QueryURL returns the report page URL that selects day through query parameters.
func (site ReportSite) QueryURL(day time.Time) (string, error) {
	u, err := url.Parse(site.PageURL)
	if err != nil {
		return "", fmt.Errorf("report page url %q: %w", site.PageURL, err)
	}
	layout := site.QueryDateLayout
	if layout == "" {
		layout = DefaultQueryDateLayout
	}
	q := u.Query()
	q.Set("RPTTYPE", reportTypeNewApplications)
	q.Set("RPTDATE", day.Format(layout))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (site ReportSite) rowSelector() string {
	return site.Table + " tbody tr"
}
