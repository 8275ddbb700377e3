package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newReportServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("RPTTYPE") != "2" {
			http.Error(w, "bad report type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		switch r.URL.Query().Get("RPTDATE") {
		case "2024-06-02":
			fmt.Fprint(w, reportPageHTML(nil, "", true))
		case "2024-06-03":
			fmt.Fprint(w, reportPageHTML(testRows, "Showing 1 to 2 of 2 entries", true))
		case "2024-06-04":
			fmt.Fprint(w, reportPageHTML([][]string{}, "Showing 0 to 0 of 0 entries", true))
		case "2024-06-05":
			fmt.Fprint(w, `<html><head><title>403 Forbidden</title></head><body></body></html>`)
		default:
			http.Error(w, "403 Forbidden", http.StatusForbidden)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DefaultQueryDateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestHTTPReport(t *testing.T) {
	ts := newReportServer(t)
	site := DefaultReportSite()
	site.PageURL = ts.URL + "/licensing/licensing-reports/new-applications/"

	session, _ := newTestSession(t, "http_report")
	var rs ReportScraper = session.Report(site)
	ctx := context.Background()

	if GetScraperType(rs) != HTTPScraper {
		t.Errorf("GetScraperType() = %v", GetScraperType(rs))
	}

	t.Run("table", func(t *testing.T) {
		result, err := rs.Load(ctx, day(t, "2024-06-03"))
		if err != nil {
			t.Fatal(err)
		}
		if result != TableFound {
			t.Fatalf("Load() = %v", result)
		}
		table, err := rs.ReadTable(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(testReportHeaders, table.Headers); diff != "" {
			t.Errorf("(-shouldBe +got)\n%v", diff)
		}
		if len(table.Rows) != 2 {
			t.Errorf("got %v rows", len(table.Rows))
		}
		more, err := rs.NextPage(ctx)
		if err != nil || more {
			t.Errorf("NextPage() = %v, %v", more, err)
		}
	})

	t.Run("no data", func(t *testing.T) {
		result, err := rs.Load(ctx, day(t, "2024-06-02"))
		if err != nil {
			t.Fatal(err)
		}
		if result != NoDataDetected {
			t.Errorf("Load() = %v", result)
		}
	})

	t.Run("neither sentinel nor rows", func(t *testing.T) {
		_, err := rs.Load(ctx, day(t, "2024-06-04"))
		var notReady NotReadyError
		if !errors.As(err, &notReady) {
			t.Errorf("want NotReadyError, got %v", err)
		}
		if _, err := rs.ReadTable(ctx); err == nil {
			t.Error("ReadTable() after a failed Load should fail")
		}
	})

	t.Run("forbidden page", func(t *testing.T) {
		_, err := rs.Load(ctx, day(t, "2024-06-05"))
		var forbidden ForbiddenError
		if !errors.As(err, &forbidden) {
			t.Errorf("want ForbiddenError, got %v", err)
		}
	})

	t.Run("forbidden status", func(t *testing.T) {
		_, err := rs.Load(ctx, day(t, "2024-06-06"))
		var forbidden ForbiddenError
		if !errors.As(err, &forbidden) {
			t.Errorf("want ForbiddenError, got %v", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		s := site
		s.PageURL = "http://127.0.0.1:1/"
		_, err := session.Report(s).Load(ctx, day(t, "2024-06-03"))
		var navigation NavigationError
		if !errors.As(err, &navigation) {
			t.Errorf("want NavigationError, got %v", err)
		}
	})

}

func TestReportSite_QueryURL(t *testing.T) {
	site := DefaultReportSite()
	got, err := site.QueryURL(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if want := DefaultReportPageURL + "?RPTDATE=2024-06-03&RPTTYPE=2"; got != want {
		t.Errorf("QueryURL() = %v, want %v", got, want)
	}

	site.QueryDateLayout = "01/02/2006"
	got, err = site.QueryURL(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if want := DefaultReportPageURL + "?RPTDATE=06%2F03%2F2024&RPTTYPE=2"; got != want {
		t.Errorf("QueryURL() = %v, want %v", got, want)
	}

	site.PageURL = "://bad"
	if _, err := site.QueryURL(time.Now()); err == nil {
		t.Error("want error for a bad page url")
	}
}

func TestParseLoadMode(t *testing.T) {
	for _, s := range []string{"datepicker", "query", "download"} {
		mode, err := ParseLoadMode(s)
		if err != nil || string(mode) != s {
			t.Errorf("ParseLoadMode(%q) = %v, %v", s, mode, err)
		}
	}
	if _, err := ParseLoadMode("xpath"); err == nil {
		t.Error("want error for unknown mode")
	}
}
