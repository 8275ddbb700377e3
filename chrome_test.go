package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/go-cmp/cmp"
)

// scriptedReportPage imitates the site: a jQuery UI style date picker, a DataTables table
// paged two rows at a time unless the length select says otherwise, and a CSV export button.
const scriptedReportPage = `<html><head><title>New Applications</title></head><body>
<input id="daily-report-datepicker" type="text">
<div class="ui-datepicker-calendar" style="display:none">calendar</div>
<button id="daily-report-submit">Submit</button>
<select name="license_report_length"><option value="2" selected>2</option><option value="100">100</option></select>
<div id="result"></div>
<script>
const data = {
	"June 03, 2024": [
		["41", "JOE'S TACOS   GARCIA, JOSE<br>1 MAIN ST<br>SACRAMENTO, CA 95814"],
		["47", "THE BAR<br>22 K ST<br>LOS ANGELES, CA 90012"],
		["20", "CORNER MARKET<br>9 ELM AVE<br>FRESNO, CA 93701"],
	],
	"June 04, 2024": [
		["21", "LIQUOR BARN<br>5 OAK ST<br>CHICO, CA 95926"],
	],
};
data["2024-06-03"] = data["June 03, 2024"];
data["2024-06-04"] = data["June 04, 2024"];
const length = document.querySelector('select[name="license_report_length"]');
let current = null;
window.redraws = 0;

function render(date, page) {
	current = date;
	window.redraws++;
	const res = document.getElementById("result");
	const rows = data[date];
	if (!rows) {
		res.innerHTML = '<div class="et_pb_code_inner">There were no new applications taken on the selected report date.</div>';
		return;
	}
	const size = Number(length.value), from = page * size, to = Math.min(rows.length, from + size);
	let html = '<div id="license_report_wrapper"><div class="dt-buttons"><button>CSV</button></div>';
	html += '<table id="license_report"><thead><tr><th>License Type</th><th>Primary Owner and Premises Addr.</th></tr></thead><tbody>';
	for (let i = from; i < to; i++) {
		html += '<tr><td>' + rows[i][0] + '</td><td>' + rows[i][1] + '</td></tr>';
	}
	html += '</tbody></table>';
	html += '<div id="license_report_info">Showing ' + (from + 1) + ' to ' + to + ' of ' + rows.length + ' entries</div>';
	html += '<a id="license_report_next" class="paginate_button next' + (to >= rows.length ? ' disabled' : '') + '">Next</a></div>';
	res.innerHTML = html;

	const next = document.getElementById("license_report_next");
	next.addEventListener("click", () => {
		if (!next.classList.contains("disabled")) setTimeout(() => render(date, page + 1), 100);
	});
	document.querySelector(".dt-buttons button").addEventListener("click", () => {
		location.href = "/export.csv";
	});
}

length.addEventListener("change", () => {
	if (current !== null) setTimeout(() => render(current, 0), 100);
});

const picker = document.getElementById("daily-report-datepicker");
picker.addEventListener("click", () => {
	document.querySelector(".ui-datepicker-calendar").style.display = "block";
});
document.getElementById("daily-report-submit").addEventListener("click", () => {
	const date = picker.value;
	setTimeout(() => render(date, 0), 200);
});
const q = new URLSearchParams(location.search);
if (q.get("RPTDATE")) render(q.get("RPTDATE"), 0);
</script>
</body></html>`

func newScriptedReportServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/report/":
			fmt.Fprint(w, scriptedReportPage)
		case "/export.csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", "attachment; filename=license_report.csv")
			fmt.Fprint(w, "\ufeffLicense Type,Primary Owner and Premises Addr.\r\n41,\"JOE'S TACOS\"\r\n")
		case "/blocked/":
			fmt.Fprint(w, `<html><head><title>403 Forbidden</title></head><body>403 Forbidden</body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestChromeSession(t *testing.T, timeout time.Duration) *ChromeSession {
	t.Helper()
	requireChrome(t)
	session, _ := newTestSession(t, "chrome_test")
	chromeSession, cancelFunc, err := session.NewChromeOpt(NewTestChromeOptionsWithTimeout(true, timeout))
	t.Cleanup(cancelFunc)
	if err != nil {
		t.Fatalf("NewChromeOpt() error: %v", err)
	}
	return chromeSession
}

func readAllPages(t *testing.T, ctx context.Context, rs ReportScraper) [][]string {
	t.Helper()
	var rows [][]string
	for {
		table, err := rs.ReadTable(ctx)
		if err != nil {
			t.Fatal(err)
		}
		rows = append(rows, table.Rows...)
		more, err := rs.NextPage(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			return rows
		}
	}
}

var scriptedRows = [][]string{
	{"41", "JOE'S TACOS   GARCIA, JOSE\n1 MAIN ST\nSACRAMENTO, CA 95814"},
	{"47", "THE BAR\n22 K ST\nLOS ANGELES, CA 90012"},
	{"20", "CORNER MARKET\n9 ELM AVE\nFRESNO, CA 93701"},
}

func TestChromeReport(t *testing.T) {
	ts := newScriptedReportServer(t)
	site := DefaultReportSite()
	site.PageURL = ts.URL + "/report/"
	ctx := context.Background()

	for _, mode := range []LoadMode{QueryMode, DatePickerMode} {
		t.Run(string(mode), func(t *testing.T) {
			chromeSession := newTestChromeSession(t, 60*time.Second)
			rs := chromeSession.Report(site, mode)
			rs.ReadyTimeout = getCIMinTimeout(10 * time.Second)
			if GetScraperType(rs) != ChromeScraper {
				t.Errorf("GetScraperType() = %v", GetScraperType(rs))
			}

			result, err := rs.Load(ctx, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatal(err)
			}
			if result != TableFound {
				t.Fatalf("Load() = %v", result)
			}
			if diff := cmp.Diff(scriptedRows, readAllPages(t, ctx, rs)); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}

			// the previous day's table must not be mistaken for the next day's
			result, err = rs.Load(ctx, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatal(err)
			}
			if result != NoDataDetected {
				t.Errorf("Load() = %v", result)
			}
		})
	}
}

func TestChromeReport_PageLength(t *testing.T) {
	ts := newScriptedReportServer(t)
	ctx := context.Background()
	chromeSession := newTestChromeSession(t, 60*time.Second)

	tests := []struct {
		name       string
		pageLength int
		day        time.Time
		wantPages  int
		wantRows   [][]string
		wantDraws  int
	}{
		{
			name:       "more rows than the default length",
			pageLength: 100,
			day:        time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
			wantPages:  1,
			wantRows:   scriptedRows,
			wantDraws:  2,
		},
		{
			name:       "fewer rows than the default length",
			pageLength: 100,
			day:        time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC),
			wantPages:  1,
			wantRows:   [][]string{{"21", "LIQUOR BARN\n5 OAK ST\nCHICO, CA 95926"}},
			wantDraws:  1,
		},
		{
			name:       "site default length",
			pageLength: 0,
			day:        time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
			wantPages:  2,
			wantRows:   scriptedRows,
			wantDraws:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := DefaultReportSite()
			site.PageURL = ts.URL + "/report/"
			site.PageLength = tt.pageLength
			rs := chromeSession.Report(site, QueryMode)
			// short enough that a wait for a redraw that never comes fails the test
			rs.ReadyTimeout = getCIMinTimeout(5 * time.Second)

			result, err := rs.Load(ctx, tt.day)
			if err != nil {
				t.Fatal(err)
			}
			if result != TableFound {
				t.Fatalf("Load() = %v", result)
			}

			var rows [][]string
			pages := 0
			for {
				table, err := rs.ReadTable(ctx)
				if err != nil {
					t.Fatal(err)
				}
				pages++
				rows = append(rows, table.Rows...)
				more, err := rs.NextPage(ctx)
				if err != nil {
					t.Fatal(err)
				}
				if !more {
					break
				}
			}
			if pages != tt.wantPages {
				t.Errorf("pages = %v, want %v", pages, tt.wantPages)
			}
			if diff := cmp.Diff(tt.wantRows, rows); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}

			var draws int
			if err := chromedp.Run(chromeSession.Ctx, chromedp.Evaluate(`window.redraws`, &draws)); err != nil {
				t.Fatal(err)
			}
			if draws != tt.wantDraws {
				t.Errorf("table drawn %v times, want %v", draws, tt.wantDraws)
			}
		})
	}
}

func TestChromeReport_Errors(t *testing.T) {
	ts := newScriptedReportServer(t)
	ctx := context.Background()
	chromeSession := newTestChromeSession(t, 60*time.Second)

	t.Run("forbidden", func(t *testing.T) {
		site := DefaultReportSite()
		site.PageURL = ts.URL + "/blocked/"
		rs := chromeSession.Report(site, QueryMode)
		_, err := rs.Load(ctx, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
		var forbidden ForbiddenError
		if !errors.As(err, &forbidden) {
			t.Errorf("want ForbiddenError, got %v", err)
		}
	})

	t.Run("never ready", func(t *testing.T) {
		site := DefaultReportSite()
		site.PageURL = ts.URL + "/report/"
		site.Table = "#no_such_table"
		rs := chromeSession.Report(site, QueryMode)
		rs.ReadyTimeout = time.Second
		_, err := rs.Load(ctx, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
		var notReady NotReadyError
		if !errors.As(err, &notReady) {
			t.Errorf("want NotReadyError, got %v", err)
		}
	})

	t.Run("download needs download mode", func(t *testing.T) {
		rs := chromeSession.Report(DefaultReportSite(), QueryMode)
		_, _, err := rs.DownloadCSV(ctx, time.Now())
		var unsupported UnsupportedModeError
		if !errors.As(err, &unsupported) {
			t.Errorf("want UnsupportedModeError, got %v", err)
		}
	})
}

func TestChromeReport_DownloadCSV(t *testing.T) {
	ts := newScriptedReportServer(t)
	site := DefaultReportSite()
	site.PageURL = ts.URL + "/report/"
	ctx := context.Background()

	chromeSession := newTestChromeSession(t, 60*time.Second)
	rs := chromeSession.Report(site, DownloadMode)
	rs.ReadyTimeout = getCIMinTimeout(10 * time.Second)

	filename, ok, err := rs.DownloadCSV(ctx, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !strings.HasSuffix(filename, "license_report.csv") {
		t.Fatalf("DownloadCSV() = %v, %v", filename, ok)
	}
	records, err := ReadCSVFile(filename, nil)
	if err != nil {
		t.Fatal(err)
	}
	shouldBe := [][]string{{"License Type", "Primary Owner and Premises Addr."}, {"41", "JOE'S TACOS"}}
	if diff := cmp.Diff(shouldBe, records); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}

	_, ok, err = rs.DownloadCSV(ctx, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
	if err != nil || ok {
		t.Errorf("DownloadCSV() on a day without data = %v, %v", ok, err)
	}
}

func TestChromeSession_DownloadFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=example.txt")
		_, _ = fmt.Fprint(w, "Hello World.")
	}))
	defer ts.Close()

	tests := []struct {
		name    string
		opt     DownloadFileOptions
		wantErr bool
	}{
		{
			name: "no glob",
			opt:  DownloadFileOptions{},
		},
		{
			name:    "invalid glob",
			opt:     DownloadFileOptions{Glob: "["},
			wantErr: true,
		},
		{
			name: "valid glob",
			opt:  DownloadFileOptions{Glob: "*.txt"},
		},
		{
			name:    "valid but not matched glob",
			opt:     DownloadFileOptions{Glob: "*.csv"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chromeSession := newTestChromeSession(t, 30*time.Second)

			var downloadedFilename string
			err := chromedp.Run(chromeSession.Ctx,
				chromeSession.DownloadFile(&downloadedFilename, tt.opt,
					chromedp.Navigate(ts.URL),
				),
			)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DownloadFile() error: %v", err)
			}
			if tt.wantErr {
				return
			}

			rawFile, err := os.ReadFile(downloadedFilename)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff("Hello World.", string(rawFile)); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestChromeSession_DebugStep(t *testing.T) {
	requireChrome(t)
	session, _ := newTestSession(t, "chrome_debug_inherit_test_session")

	debugStep := "継承テスト"
	session.SetDebugStep(debugStep)

	chromeSession, cancelFunc, err := session.NewChromeOpt(NewTestChromeOptionsWithTimeout(true, 30*time.Second))
	defer cancelFunc()
	if err != nil {
		t.Fatalf("NewChromeOpt() error: %v", err)
	}

	if chromeSession.GetDebugStep() != debugStep {
		t.Errorf("Expected ChromeSession to inherit debug step %q, got %q", debugStep, chromeSession.GetDebugStep())
	}

	chromeSession.ClearDebugStep()
	if session.GetDebugStep() != "" {
		t.Errorf("Expected Session debug step to be cleared via ChromeSession, got %q", session.GetDebugStep())
	}
}
