package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/output"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// DayState is where the per-day state machine stopped.
type DayState int

const (
	PageLoading DayState = iota
	NoDataDetected
	TableFound
	Paginating
	Done
)

func (s DayState) String() string {
	switch s {
	case PageLoading:
		return "PageLoading"
	case NoDataDetected:
		return "NoDataDetected"
	case TableFound:
		return "TableFound"
	case Paginating:
		return "Paginating"
	case Done:
		return "Done"
	}
	return fmt.Sprintf("DayState(%d)", int(s))
}

type DayResult struct {
	Day   time.Time
	State DayState // state reached; with Err set, the state the failure happened in
	Pages int
	Rows  int
	File  string // per-day CSV written in download mode
	Err   error
}

// SessionError ends a run: the page can no longer be reached, so no later day would succeed.
type SessionError struct {
	Day time.Time
	Err error
}

func (err SessionError) Error() string {
	return fmt.Sprintf("%v: %v", err.Day.Format(scraper.ReportDateLayout), err.Err)
}

func (err SessionError) Unwrap() error { return err.Err }

// IsSessionError reports whether err, returned while scraping under ctx, must stop the run.
func IsSessionError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	var navigation scraper.NavigationError
	var forbidden scraper.ForbiddenError
	return errors.As(err, &navigation) || errors.As(err, &forbidden)
}

// Downloads switches the scraper to the site's CSV export.
type Downloads struct {
	Source   scraper.ReportDownloader
	WorkDir  string            // per-day stamped CSVs are written here
	Encoding encoding.Encoding // charset of the exported CSV, nil for UTF-8
}

type Summary struct {
	Days    []DayResult
	Rows    int
	Skipped int // days dropped for an error of their own; the day that ended the run is not one
	Files   []string
}

func (s *Summary) add(res DayResult, aborted bool) {
	s.Days = append(s.Days, res)
	s.Rows += res.Rows
	if res.Err != nil && !aborted {
		s.Skipped++
	}
	if res.File != "" {
		s.Files = append(s.Files, res.File)
	}
}

// Scraper walks a date range one day at a time on a single page.
type Scraper struct {
	Page      scraper.ReportScraper
	Downloads *Downloads
	Log       *zap.Logger
	OnDay     func(DayResult) // progress callback, may be nil
}

func (s *Scraper) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// ScrapeDay loads day, reads every page of the table and adds the rows to ds.
// Nothing is added when the day fails part way.
func (s *Scraper) ScrapeDay(ctx context.Context, day time.Time, ds *Dataset) DayResult {
	res := DayResult{Day: day, State: PageLoading}

	loaded, err := s.Page.Load(ctx, day)
	if err != nil {
		res.Err = err
		return res
	}
	if loaded == scraper.NoDataDetected {
		res.State = NoDataDetected
		return res
	}

	res.State = TableFound
	var pages []*scraper.Table
	for {
		table, err := s.Page.ReadTable(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		pages = append(pages, table)
		res.Pages++

		more, err := s.Page.NextPage(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		if !more {
			break
		}
		res.State = Paginating
	}

	n, err := ds.AppendPages(day, pages)
	if err != nil {
		res.Err = err
		return res
	}
	res.Rows = n
	res.State = Done
	return res
}

// DownloadDay saves the day's CSV export, adds its rows to ds and keeps a stamped copy in WorkDir.
// The browser's own file is removed.
func (s *Scraper) DownloadDay(ctx context.Context, day time.Time, ds *Dataset) DayResult {
	res := DayResult{Day: day, State: PageLoading}
	d := s.Downloads

	filename, ok, err := d.Source.DownloadCSV(ctx, day)
	if err != nil {
		res.Err = err
		return res
	}
	if !ok {
		res.State = NoDataDetected
		return res
	}
	defer func() {
		if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger().Warn("remove download", zap.String("file", filename), zap.Error(err))
		}
	}()
	res.State = TableFound

	records, err := scraper.ReadCSVFile(filename, d.Encoding)
	if err != nil {
		res.Err = err
		return res
	}
	if len(records) < 2 {
		res.State = NoDataDetected
		return res
	}
	table := &scraper.Table{Headers: records[0], Rows: records[1:]}
	res.Pages = 1

	before := ds.Len()
	n, err := ds.Append(day, table)
	if err != nil {
		res.Err = err
		return res
	}

	perDay := filepath.Join(d.WorkDir, fmt.Sprintf("report_%v.csv", day.Format("2006-01-02")))
	if err := output.WriteCSVFile(perDay, ds.Headers, ds.Rows[before:]); err != nil {
		ds.Rows = ds.Rows[:before]
		res.Err = err
		return res
	}
	res.File = perDay
	res.Rows = n
	res.State = Done
	return res
}

// Run scrapes every day of r into ds. Days failing on their own are logged and skipped;
// the returned error is a SessionError, and ds keeps whatever was collected before it.
func (s *Scraper) Run(ctx context.Context, r DateRange, ds *Dataset) (Summary, error) {
	var summary Summary
	log := s.logger()

	for _, day := range r.Days() {
		if err := ctx.Err(); err != nil {
			return summary, SessionError{day, err}
		}

		var res DayResult
		if s.Downloads != nil {
			res = s.DownloadDay(ctx, day, ds)
		} else {
			res = s.ScrapeDay(ctx, day, ds)
		}
		aborted := IsSessionError(ctx, res.Err)
		summary.add(res, aborted)
		if s.OnDay != nil {
			s.OnDay(res)
		}

		fields := []zap.Field{
			zap.String("day", day.Format(scraper.ReportDateLayout)),
			zap.Stringer("state", res.State),
			zap.Int("pages", res.Pages),
			zap.Int("rows", res.Rows),
		}
		if res.Err != nil {
			if aborted {
				log.Error("session failed", append(fields, zap.Error(res.Err))...)
				return summary, SessionError{day, res.Err}
			}
			log.Warn("day skipped", append(fields, zap.Error(res.Err))...)
			continue
		}
		log.Info("day scraped", fields...)
	}
	return summary, nil
}
