package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const staleAttr = "data-abcreport-stale"

// ChromeReport drives the report page in a real browser. Every wait polls the DOM for a
// condition with a bounded timeout instead of sleeping a fixed time.
type ChromeReport struct {
	cs              *ChromeSession
	site            ReportSite
	mode            LoadMode
	ReadyTimeout    time.Duration
	PollInterval    time.Duration
	DownloadTimeout time.Duration
	opened          bool
}

func (chromeSession *ChromeSession) Report(site ReportSite, mode LoadMode) *ChromeReport {
	return &ChromeReport{
		cs:              chromeSession,
		site:            site,
		mode:            mode,
		ReadyTimeout:    DefaultTimeout,
		PollInterval:    DefaultPollInterval,
		DownloadTimeout: DefaultDownloadTimeout,
	}
}

func (r *ChromeReport) Printf(format string, a ...interface{}) {
	r.cs.Printf(format, a...)
}

// run executes actions on the browser tab, stopping early when ctx is done.
func (r *ChromeReport) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(r.cs.Ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() == nil && r.cs.Ctx.Err() != nil {
		// the browser itself is gone, no later day can succeed either
		return NavigationError{"browser", err}
	}
	return err
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// poll evaluates expr until it yields a non-empty string.
func (r *ChromeReport) poll(ctx context.Context, what string, expr string) (string, error) {
	deadline := time.Now().Add(r.ReadyTimeout)
	var lastErr error
	for {
		var res string
		err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(expr, &res))
		switch {
		case err == nil && res != "":
			return res, nil
		case ctx.Err() != nil:
			return "", ctx.Err()
		case r.cs.Ctx.Err() != nil:
			return "", NavigationError{what, r.cs.Ctx.Err()}
		case err != nil:
			// the execution context disappears while the page navigates
			lastErr = err
		}
		if time.Now().After(deadline) {
			if lastErr != nil {
				r.Printf("%v: last poll error: %v", what, lastErr)
			}
			return "", NotReadyError{What: what, Timeout: r.ReadyTimeout}
		}
		select {
		case <-time.After(r.PollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (r *ChromeReport) navigate(ctx context.Context, u string) error {
	if err := r.run(ctx, r.ReadyTimeout, chromedp.Navigate(u)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NavigationError{u, err}
	}
	var forbidden bool
	err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(
		`document.title.includes("403 Forbidden") || (document.body !== null && document.body.innerText.startsWith("403 Forbidden"))`,
		&forbidden))
	if err != nil {
		return NavigationError{u, err}
	}
	if forbidden {
		return ForbiddenError{u}
	}
	return nil
}

func (r *ChromeReport) markStale(ctx context.Context) error {
	expr := fmt.Sprintf(`document.querySelectorAll(%s + ", " + %s).forEach(e => e.setAttribute(%s, "1")), true`,
		jsString(r.site.rowSelector()), jsString(r.site.NoDataSelector), jsString(staleAttr))
	var ok bool
	return r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(expr, &ok))
}

func (r *ChromeReport) typeDate(ctx context.Context, day time.Time) error {
	if !r.opened {
		if err := r.navigate(ctx, r.site.PageURL); err != nil {
			return err
		}
		r.opened = true
	}
	if err := r.markStale(ctx); err != nil {
		return err
	}
	err := r.run(ctx, r.ReadyTimeout,
		chromedp.WaitVisible(r.site.DatePicker, chromedp.ByQuery),
		chromedp.ScrollIntoView(r.site.DatePicker, chromedp.ByQuery),
		chromedp.Click(r.site.DatePicker, chromedp.ByQuery),
		chromedp.WaitVisible(r.site.Calendar, chromedp.ByQuery),
		chromedp.SetValue(r.site.DatePicker, "", chromedp.ByQuery),
		chromedp.SendKeys(r.site.DatePicker, day.Format(ReportDateLayout), chromedp.ByQuery),
		chromedp.WaitVisible(r.site.Submit, chromedp.ByQuery),
		chromedp.Click(r.site.Submit, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return NotReadyError{What: "date picker", Timeout: r.ReadyTimeout}
		}
		return err
	}
	return nil
}

func (r *ChromeReport) readyExpr() string {
	return fmt.Sprintf(`(() => {
	const fresh = (e) => !e.hasAttribute(%[1]s);
	for (const e of document.querySelectorAll(%[2]s)) {
		if (fresh(e) && e.textContent.trim() === %[3]s) return "nodata";
	}
	for (const row of document.querySelectorAll(%[4]s)) {
		if (fresh(row) && row.querySelector("td.dataTables_empty") === null) return "table";
	}
	return "";
})()`, jsString(staleAttr), jsString(r.site.NoDataSelector), jsString(r.site.NoDataText), jsString(r.site.rowSelector()))
}

// signatureExpr identifies the rendered page of the table, so a redraw can be detected.
func (r *ChromeReport) signatureExpr() string {
	return fmt.Sprintf(`(() => {
	const info = document.querySelector(%s);
	const row = document.querySelector(%s);
	return (info ? info.textContent : "") + "|" + (row ? row.textContent : "");
})()`, jsString(r.site.Info), jsString(r.site.rowSelector()))
}

func (r *ChromeReport) signature(ctx context.Context) (string, error) {
	var sig string
	err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(r.signatureExpr(), &sig))
	return sig, err
}

func (r *ChromeReport) waitRedraw(ctx context.Context, what string, before string) error {
	expr := fmt.Sprintf(`(() => { const sig = %s; return sig !== %s ? sig : ""; })()`, r.signatureExpr(), jsString(before))
	_, err := r.poll(ctx, what, expr)
	return err
}

// pageInfo reads the DataTables info text currently rendered.
func (r *ChromeReport) pageInfo(ctx context.Context) (PageInfo, bool, error) {
	var html string
	expr := fmt.Sprintf(`(() => { const e = document.querySelector(%s); return e ? e.outerHTML : ""; })()`, jsString(r.site.Info))
	if err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(expr, &html)); err != nil {
		return PageInfo{}, false, err
	}
	if html == "" {
		return PageInfo{}, false, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageInfo{}, false, err
	}
	info, ok := r.site.PageInfo(doc.Selection)
	return info, ok, nil
}

// setPageLength selects the largest page size so fewer pages have to be walked.
// A table that already shows every entry is left alone: its redraw would render the same
// info text and first row, so there would be nothing to wait for.
func (r *ChromeReport) setPageLength(ctx context.Context) error {
	if r.site.PageLength <= 0 || r.site.LengthSelect == "" {
		return nil
	}
	info, ok, err := r.pageInfo(ctx)
	if err != nil {
		return err
	}
	if !ok || info.AllShown() {
		// without the info text a redraw cannot be told apart; the pager still reaches every row
		return nil
	}
	before, err := r.signature(ctx)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf(`(() => {
	const s = document.querySelector(%s);
	const v = %s;
	if (s === null || s.value === v || !Array.from(s.options).some(o => o.value === v)) return false;
	s.value = v;
	s.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
})()`, jsString(r.site.LengthSelect), jsString(fmt.Sprint(r.site.PageLength)))
	var changed bool
	if err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(expr, &changed)); err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return r.waitRedraw(ctx, "page length", before)
}

func (r *ChromeReport) Load(ctx context.Context, day time.Time) (LoadResult, error) {
	r.cs.SetDebugStep(day.Format(DefaultQueryDateLayout))
	defer r.cs.ClearDebugStep()

	switch r.mode {
	case QueryMode:
		u, err := r.site.QueryURL(day)
		if err != nil {
			return 0, err
		}
		if err := r.navigate(ctx, u); err != nil {
			return 0, err
		}
		r.opened = true
	case DatePickerMode, DownloadMode:
		if err := r.typeDate(ctx, day); err != nil {
			return 0, err
		}
	default:
		return 0, UnsupportedModeError{"chrome", r.mode}
	}

	state, err := r.poll(ctx, "report for "+day.Format(ReportDateLayout), r.readyExpr())
	if err != nil {
		return 0, err
	}
	if state == "nodata" {
		return NoDataDetected, nil
	}
	if err := r.setPageLength(ctx); err != nil {
		return 0, err
	}
	return TableFound, nil
}

func (r *ChromeReport) ReadTable(ctx context.Context) (*Table, error) {
	var html string
	if err := r.run(ctx, r.ReadyTimeout, chromedp.OuterHTML(r.site.Table, &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return ParseTable(doc.Find(r.site.Table))
}

func (r *ChromeReport) NextPage(ctx context.Context) (bool, error) {
	var state string
	expr := fmt.Sprintf(`(() => {
	const n = document.querySelector(%s);
	if (n === null) return "absent";
	return n.classList.contains("disabled") ? "disabled" : "enabled";
})()`, jsString(r.site.Next))
	if err := r.run(ctx, r.ReadyTimeout, chromedp.Evaluate(expr, &state)); err != nil {
		return false, err
	}
	if state != "enabled" {
		return false, nil
	}

	before, err := r.signature(ctx)
	if err != nil {
		return false, err
	}
	if err := r.run(ctx, r.ReadyTimeout, chromedp.Click(r.site.Next, chromedp.ByQuery)); err != nil {
		return false, err
	}
	if err := r.waitRedraw(ctx, "next page", before); err != nil {
		return false, err
	}
	return true, nil
}

// DownloadCSV loads day and saves the table through the site's CSV export button.
func (r *ChromeReport) DownloadCSV(ctx context.Context, day time.Time) (string, bool, error) {
	if r.mode != DownloadMode {
		return "", false, UnsupportedModeError{"chrome", r.mode}
	}
	result, err := r.Load(ctx, day)
	if err != nil || result == NoDataDetected {
		return "", false, err
	}

	var filename string
	err = r.run(ctx, 0,
		r.cs.DownloadFile(&filename, DownloadFileOptions{Timeout: r.DownloadTimeout, Glob: "*.csv"},
			chromedp.Click(r.site.DownloadButton, chromedp.ByQuery),
		),
	)
	if err != nil {
		return "", false, err
	}
	return filename, true, nil
}
