package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

type DownloadFileOptions struct {
	Timeout time.Duration // Maximum time to wait for download (defaults to DefaultDownloadTimeout if zero)
	Glob    string        // File name pattern the suggested filename must match
}

type downloadResult struct {
	guid      string
	suggested string
	state     browser.DownloadProgressState
}

// downloadWatcher collects browser download events; chromedp listeners cannot be removed,
// so one watcher lives as long as the ChromeSession.
type downloadWatcher struct {
	mu    sync.Mutex
	names map[string]string
	done  chan downloadResult
}

func newDownloadWatcher() *downloadWatcher {
	return &downloadWatcher{
		names: map[string]string{},
		done:  make(chan downloadResult, 16),
	}
}

func (w *downloadWatcher) listen(ev interface{}) {
	switch ev := ev.(type) {
	case *browser.EventDownloadWillBegin:
		w.mu.Lock()
		w.names[ev.GUID] = ev.SuggestedFilename
		w.mu.Unlock()

	case *browser.EventDownloadProgress:
		if ev.State != browser.DownloadProgressStateCompleted && ev.State != browser.DownloadProgressStateCanceled {
			return
		}
		w.mu.Lock()
		name := w.names[ev.GUID]
		delete(w.names, ev.GUID)
		w.mu.Unlock()
		select {
		case w.done <- downloadResult{ev.GUID, name, ev.State}:
		default:
		}
	}
}

func (w *downloadWatcher) drain() {
	for {
		select {
		case <-w.done:
		default:
			return
		}
	}
}

// DownloadFile runs actions, which must trigger exactly one download, and waits for the
// browser to finish it. The file is renamed to its suggested name inside DownloadPath and
// that path is stored to filename.
func (chromeSession *ChromeSession) DownloadFile(filename *string, options DownloadFileOptions, actions ...chromedp.Action) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		timeout := options.Timeout
		if timeout == 0 {
			timeout = DefaultDownloadTimeout
		}
		if options.Glob != "" {
			if _, err := filepath.Match(options.Glob, ""); err != nil {
				return fmt.Errorf("glob %q: %w", options.Glob, err)
			}
		}

		chromeSession.downloads.drain()
		for _, action := range actions {
			if err := action.Do(ctx); err != nil {
				// navigating straight to an attachment aborts the page load; the download still runs
				if strings.Contains(err.Error(), "net::ERR_ABORTED") {
					continue
				}
				return err
			}
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		var result downloadResult
		select {
		case result = <-chromeSession.downloads.done:
		case <-timer.C:
			return DownloadError{fmt.Sprintf("no download completed within %v", timeout)}
		case <-ctx.Done():
			return ctx.Err()
		}
		if result.state == browser.DownloadProgressStateCanceled {
			return DownloadError{fmt.Sprintf("download of %q was canceled", result.suggested)}
		}

		name := result.suggested
		if name == "" {
			name = result.guid
		}
		name = filepath.Base(name)
		if options.Glob != "" {
			matched, _ := filepath.Match(options.Glob, name)
			if !matched {
				_ = os.Remove(filepath.Join(chromeSession.DownloadPath, result.guid))
				return DownloadError{fmt.Sprintf("%q does not match %q", name, options.Glob)}
			}
		}

		target := filepath.Join(chromeSession.DownloadPath, name)
		if err := os.Rename(filepath.Join(chromeSession.DownloadPath, result.guid), target); err != nil {
			return DownloadError{err.Error()}
		}
		chromeSession.Printf("**** %vDOWNLOAD %v\n", chromeSession.stepPrefix(), target)
		*filename = target
		return nil
	}
}
