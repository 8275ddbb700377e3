package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/address"
	"github.com/koizuka/abcreport/config"
	"github.com/koizuka/abcreport/output"
	"github.com/koizuka/abcreport/report"
	"go.uber.org/zap"
)

// InternalErrorMessage is shown when the session fails as a whole.
const InternalErrorMessage = "Internal Error Occurred while running application. Please Try Again!!"

var ErrBusy = errors.New("a report run is already in progress")

// Request is one run as entered by the user.
type Request struct {
	Start string
	End   string
}

type Result struct {
	RunID   string
	Range   report.DateRange
	Summary report.Summary
	Rows    int
	Files   []string
	Err     error // first error that stopped or spoiled the run
}

// Controller owns the state the scripts kept in GUI globals: the config, the logger
// and whether a run is in progress. Only one run is active at a time.
type Controller struct {
	Config     *config.Config
	Log        *zap.Logger
	Notifier   Notifier
	NewSession SessionFactory
	Now        func() time.Time

	mu   sync.Mutex
	busy bool
}

func NewController(cfg *config.Config, log *zap.Logger, notifier Notifier, factory SessionFactory) *Controller {
	return &Controller{
		Config:     cfg,
		Log:        log,
		Notifier:   notifier,
		NewSession: factory,
		Now:        time.Now,
	}
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// Start runs req in the background. The channel receives the single Result and is closed.
func (c *Controller) Start(ctx context.Context, req Request) (<-chan Result, error) {
	if !c.acquire() {
		return nil, ErrBusy
	}
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		defer c.release()
		ch <- c.run(ctx, req)
	}()
	return ch, nil
}

// Run is Start without the goroutine.
func (c *Controller) Run(ctx context.Context, req Request) (Result, error) {
	if !c.acquire() {
		return Result{}, ErrBusy
	}
	defer c.release()
	return c.run(ctx, req), nil
}

func (c *Controller) run(ctx context.Context, req Request) Result {
	res := Result{RunID: uuid.NewString()}
	log := c.Log.With(zap.String("run_id", res.RunID))
	cfg := c.Config

	r, err := report.ParseDateRange(req.Start, req.End, c.Now())
	if err != nil {
		c.Notifier.Error(err.Error())
		res.Err = err
		return res
	}
	res.Range = r
	formats, err := output.ParseFormats(strings.Join(cfg.Output.Formats, ","))
	if err != nil {
		c.Notifier.Error(err.Error())
		res.Err = err
		return res
	}
	csvEncoding, err := scraper.CharsetEncoding(cfg.Scrape.CSVCharset)
	if err != nil {
		c.Notifier.Error(err.Error())
		res.Err = err
		return res
	}

	log.Info("run started", zap.Stringer("range", r), zap.String("mode", cfg.Scrape.Mode), zap.String("backend", cfg.Browser.Backend))
	c.Notifier.Info(fmt.Sprintf("Scraping %v", r))

	backend, err := c.NewSession(ctx, cfg, res.RunID)
	if err != nil {
		log.Error("session failed to open", zap.Error(err))
		c.Notifier.Error(InternalErrorMessage)
		res.Err = err
		return res
	}
	defer backend.Close()

	ds := &report.Dataset{}
	s := &report.Scraper{Page: backend.Page, Log: log, OnDay: c.Notifier.Progress}
	if cfg.Scrape.Mode == string(scraper.DownloadMode) {
		if backend.Downloader == nil || backend.WorkDir == "" {
			err := scraper.UnsupportedModeError{Backend: cfg.Browser.Backend, Mode: scraper.DownloadMode}
			c.Notifier.Error(err.Error())
			res.Err = err
			return res
		}
		if err := os.MkdirAll(backend.WorkDir, 0755); err != nil {
			c.Notifier.Error(err.Error())
			res.Err = err
			return res
		}
		defer func() {
			if err := os.RemoveAll(backend.WorkDir); err != nil {
				log.Warn("remove work dir", zap.Error(err))
			}
		}()
		s.Downloads = &report.Downloads{Source: backend.Downloader, WorkDir: backend.WorkDir, Encoding: csvEncoding}
	}

	summary, runErr := s.Run(ctx, r, ds)
	backend.Close()
	res.Summary = summary
	res.Rows = ds.Len()
	if runErr != nil {
		log.Error("run aborted", zap.Error(runErr), zap.Int("rows", ds.Len()))
		c.Notifier.Error(InternalErrorMessage)
		res.Err = runErr
	}

	if ds.Headers == nil {
		if runErr == nil {
			c.Notifier.Info(fmt.Sprintf("No new applications found for %v", r))
		}
		log.Info("run finished", zap.Int("rows", 0))
		return res
	}

	files, err := c.writeOutputs(log, r, ds, summary.Files, formats)
	res.Files = files
	if err != nil {
		log.Error("output failed", zap.Error(err))
		c.Notifier.Error(err.Error())
		if res.Err == nil {
			res.Err = err
		}
	}
	if len(files) > 0 {
		c.Notifier.Info(fmt.Sprintf("Saved %d rows to %v", ds.Len(), strings.Join(files, ", ")))
	}
	log.Info("run finished", zap.Int("rows", ds.Len()), zap.Int("skipped_days", summary.Skipped), zap.Strings("files", files))
	return res
}

// writeOutputs saves ds in every format. Per-day files, when present, are concatenated for
// the CSV output the way the download scripts merged them.
func (c *Controller) writeOutputs(log *zap.Logger, r report.DateRange, ds *report.Dataset, perDay []string, formats []output.Format) ([]string, error) {
	cfg := c.Config
	headers, rows := ds.Headers, ds.Rows

	if cfg.Output.SortByReportDate {
		rows = slices.Clone(rows)
		if err := output.SortRows(headers, rows, report.ReportDateHeader); err != nil {
			return nil, err
		}
	}

	if cfg.Output.SplitAddress {
		if !slices.Contains(headers, address.Field) {
			log.Warn("no address column to split", zap.Strings("headers", headers))
		} else {
			records := (&report.Dataset{Headers: headers, Rows: rows}).Records()
			breakdowns, problems := address.Breakdowns(records)
			for i, problem := range problems {
				log.Warn("address", zap.Int("row", i), zap.Error(problem))
			}
			merged, err := address.Merge(records, breakdowns)
			if err != nil {
				return nil, err
			}
			headers = address.MergedHeaders(headers)
			rows = address.Rows(headers, merged)
			perDay = nil
		}
	}

	var files []string
	var errs []error
	for _, format := range formats {
		path := filepath.Join(cfg.Output.Dir, output.Filename(r.Start(), r.End(), format))
		var err error
		if format == output.CSV && len(perDay) > 0 {
			sortColumn := ""
			if cfg.Output.SortByReportDate {
				sortColumn = report.ReportDateHeader
			}
			_, err = output.ConcatFile(path, format, perDay, nil, sortColumn)
		} else {
			err = output.Write(path, format, headers, rows)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, path)
	}
	return files, errors.Join(errs...)
}
