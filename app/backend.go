package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/config"
)

// Backend is one opened scraping session.
type Backend struct {
	Page       scraper.ReportScraper
	Downloader scraper.ReportDownloader // nil when the backend cannot download
	WorkDir    string                   // scratch directory for per-day CSVs
	closeFunc  func()
	once       sync.Once
}

func NewBackend(page scraper.ReportScraper, downloader scraper.ReportDownloader, workDir string, closeFunc func()) *Backend {
	return &Backend{Page: page, Downloader: downloader, WorkDir: workDir, closeFunc: closeFunc}
}

// Close releases the browser. It is safe to call more than once.
func (b *Backend) Close() {
	b.once.Do(func() {
		if b.closeFunc != nil {
			b.closeFunc()
		}
	})
}

// SessionFactory opens the backend of one run.
type SessionFactory func(ctx context.Context, cfg *config.Config, runID string) (*Backend, error)

// SiteFromConfig returns the report site with the configurable parts taken from cfg.
func SiteFromConfig(cfg *config.Config) scraper.ReportSite {
	site := scraper.DefaultReportSite()
	if cfg.Site.PageURL != "" {
		site.PageURL = cfg.Site.PageURL
	}
	if cfg.Site.QueryDateLayout != "" {
		site.QueryDateLayout = cfg.Site.QueryDateLayout
	}
	site.PageLength = cfg.Site.PageLength
	return site
}

// DefaultSessionFactory opens a Chrome or plain HTTP session as cfg.Browser.Backend says.
func DefaultSessionFactory(logger scraper.Logger) SessionFactory {
	return func(ctx context.Context, cfg *config.Config, runID string) (*Backend, error) {
		mode, err := scraper.ParseLoadMode(cfg.Scrape.Mode)
		if err != nil {
			return nil, err
		}
		site := SiteFromConfig(cfg)

		session := scraper.NewSession(cfg.Scrape.SessionName, logger)
		session.FilePrefix = cfg.Scrape.FilePrefix
		session.SaveToFile = cfg.HTTP.SaveToFile
		session.NotUseNetwork = cfg.HTTP.NotUseNetwork
		if cfg.HTTP.UserAgent != "" {
			session.UserAgent = cfg.HTTP.UserAgent
		}
		sessionDir := cfg.Scrape.FilePrefix + cfg.Scrape.SessionName
		if err := os.MkdirAll(sessionDir, 0755); err != nil {
			return nil, err
		}

		switch cfg.Browser.Backend {
		case "http":
			if mode != scraper.QueryMode {
				return nil, scraper.UnsupportedModeError{Backend: "http", Mode: mode}
			}
			session.SetRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.Burst)
			if cfg.HTTP.Cookies {
				if err := session.LoadCookie(); err != nil {
					return nil, err
				}
			}
			return NewBackend(session.Report(site), nil, "", func() {
				if cfg.HTTP.Cookies {
					if err := session.SaveCookie(); err != nil {
						logger.Printf("save cookie: %v", err)
					}
				}
			}), nil

		case "chrome":
			execPath := cfg.Browser.ExecPath
			if execPath == "" {
				execPath = scraper.FindChrome()
			}
			cs, cancel, err := session.NewChromeOpt(scraper.NewChromeOptions{
				Headless:     cfg.Browser.Headless,
				Timeout:      cfg.BrowserTimeout(),
				ExecPath:     execPath,
				WindowWidth:  cfg.Browser.WindowWidth,
				WindowHeight: cfg.Browser.WindowHeight,
				UserDataDir:  cfg.Browser.UserDataDir,
			})
			if err != nil {
				cancel()
				return nil, scraper.NavigationError{URL: "chrome", Err: err}
			}
			rs := cs.Report(site, mode)
			rs.ReadyTimeout = cfg.ReadyTimeout()
			rs.PollInterval = cfg.PollInterval()
			rs.DownloadTimeout = cfg.DownloadTimeout()

			workDir := filepath.Join(sessionDir, "work-"+runID)
			return NewBackend(rs, rs, workDir, cancel), nil
		}
		return nil, fmt.Errorf("unknown backend %q", cfg.Browser.Backend)
	}
}
