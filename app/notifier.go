package app

import (
	"fmt"
	"io"
	"sync"

	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/report"
	"go.uber.org/zap"
)

// Notifier tells the user what a run is doing. It takes the place of message boxes and the log pane.
type Notifier interface {
	Info(msg string)
	Error(msg string)
	Progress(res report.DayResult)
}

// WriterNotifier prints notifications as lines to W.
type WriterNotifier struct {
	mu sync.Mutex
	W  io.Writer
}

func (n *WriterNotifier) printf(format string, a ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.W, format+"\n", a...)
}

func (n *WriterNotifier) Info(msg string)  { n.printf("%v", msg) }
func (n *WriterNotifier) Error(msg string) { n.printf("ERROR: %v", msg) }

func (n *WriterNotifier) Progress(res report.DayResult) {
	day := res.Day.Format(scraper.ReportDateLayout)
	switch {
	case res.Err != nil:
		n.printf("%v: skipped (%v)", day, res.Err)
	case res.State == report.NoDataDetected:
		n.printf("%v: no new applications", day)
	default:
		n.printf("%v: %d rows from %d pages", day, res.Rows, res.Pages)
	}
}

// LogNotifier sends notifications to a zap logger.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Info(msg string)  { n.Log.Info(msg) }
func (n LogNotifier) Error(msg string) { n.Log.Error(msg) }

func (n LogNotifier) Progress(res report.DayResult) {
	n.Log.Debug("progress",
		zap.Time("day", res.Day),
		zap.Stringer("state", res.State),
		zap.Int("rows", res.Rows),
		zap.Error(res.Err))
}
