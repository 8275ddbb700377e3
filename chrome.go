package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

type NewChromeOptions struct {
	Headless     bool
	Timeout      time.Duration // overall lifetime of the browser context, 0 = unlimited
	ExecPath     string        // Chrome executable, empty = let chromedp find one
	WindowWidth  int
	WindowHeight int
	UserDataDir  string // empty = "<session dir>/chromeUserData"
	// ExtraAllocatorOptions are appended after the defaults, e.g. CI sandbox flags.
	ExtraAllocatorOptions []chromedp.ExecAllocatorOption
}

// ChromeSession is a browser tab bound to a Session. Files the page downloads land in DownloadPath.
type ChromeSession struct {
	*Session
	Ctx          context.Context
	DownloadPath string
	downloads    *downloadWatcher
}

func (session *Session) NewChromeOpt(options NewChromeOptions) (*ChromeSession, context.CancelFunc, error) {
	userDataDir := options.UserDataDir
	if userDataDir == "" {
		userDataDir = filepath.Join(session.getDirectory(), "chromeUserData")
	}
	chromeUserDataDir, err := filepath.Abs(userDataDir)
	if err != nil {
		return nil, func() {}, err
	}

	allocOptions := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOptions = append(allocOptions,
		chromedp.UserDataDir(chromeUserDataDir),
		chromedp.Flag("headless", options.Headless),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
	)
	if options.Headless {
		allocOptions = append(allocOptions, chromedp.DisableGPU)
	}
	if options.WindowWidth > 0 && options.WindowHeight > 0 {
		allocOptions = append(allocOptions, chromedp.WindowSize(options.WindowWidth, options.WindowHeight))
	}
	if options.ExecPath != "" {
		allocOptions = append(allocOptions, chromedp.ExecPath(options.ExecPath))
	}
	allocOptions = append(allocOptions, options.ExtraAllocatorOptions...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOptions...)

	ctxt, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(session.Printf))
	if options.Timeout != 0 {
		var timeoutCancel context.CancelFunc
		ctxt, timeoutCancel = context.WithTimeout(ctxt, options.Timeout)
		tabCancel := cancel
		cancel = func() {
			timeoutCancel()
			tabCancel()
		}
	}
	cancelFunc := func() {
		cancel()
		allocCancel()
	}

	downloadPath, err := filepath.Abs(filepath.Join(session.getDirectory(), "chrome"))
	if err != nil {
		return nil, cancelFunc, err
	}

	err = os.MkdirAll(downloadPath, 0777)
	if err != nil {
		return nil, cancelFunc, fmt.Errorf("couldn't create directory: %v", downloadPath)
	}

	chromeSession := &ChromeSession{
		Session:      session,
		Ctx:          ctxt,
		DownloadPath: downloadPath,
		downloads:    newDownloadWatcher(),
	}
	chromedp.ListenTarget(ctxt, chromeSession.downloads.listen)

	// configure to download behavior; the browser starts here
	err = chromedp.Run(ctxt,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadPath).
			WithEventsEnabled(true),
	)
	if err != nil {
		return nil, cancelFunc, err
	}

	return chromeSession, cancelFunc, nil
}
