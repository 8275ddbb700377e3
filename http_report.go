package scraper

import (
	"context"
	"errors"
	"time"
)

// HTTPReport reads the server rendered report table with plain HTTP requests.
// Only QueryMode is possible since there is no script to drive the date picker.
type HTTPReport struct {
	session *Session
	site    ReportSite
	page    *Page
}

func (session *Session) Report(site ReportSite) *HTTPReport {
	return &HTTPReport{session: session, site: site}
}

func (r *HTTPReport) Printf(format string, a ...interface{}) {
	r.session.Printf(format, a...)
}

func (r *HTTPReport) Load(ctx context.Context, day time.Time) (LoadResult, error) {
	r.page = nil
	u, err := r.site.QueryURL(day)
	if err != nil {
		return 0, err
	}

	r.session.SetDebugStep(day.Format(DefaultQueryDateLayout))
	defer r.session.ClearDebugStep()

	page, err := r.session.GetPage(ctx, u)
	if err != nil {
		var requestErr RequestError
		var forbidden ForbiddenError
		switch {
		case errors.As(err, &forbidden):
			return 0, err
		case errors.As(err, &requestErr):
			return 0, NavigationError{u, err}
		}
		return 0, err
	}
	if page.IsForbidden() {
		return 0, ForbiddenError{u}
	}
	r.page = page

	switch {
	case r.site.HasNoDataSentinel(page.Selection):
		return NoDataDetected, nil
	case r.site.HasTableRows(page.Selection):
		return TableFound, nil
	}
	return 0, NotReadyError{What: "report table", Timeout: 0}
}

func (r *HTTPReport) ReadTable(ctx context.Context) (*Table, error) {
	if r.page == nil {
		return nil, errors.New("ReadTable called before a successful Load")
	}
	return ParseTable(r.page.Find(r.site.Table))
}

// NextPage always reports false: the HTML response carries every row.
func (r *HTTPReport) NextPage(ctx context.Context) (bool, error) {
	return false, nil
}
