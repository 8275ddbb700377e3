package scraper

import (
	"bytes"
	"fmt"
	"sync"
)

type Logger interface {
	Printf(format string, a ...interface{})
}

// BufferedLogger keeps log lines in memory until Flush.
type BufferedLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (buflog *BufferedLogger) Printf(format string, a ...interface{}) {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	fmt.Fprintf(&buflog.buffer, format, a...)
	if n := buflog.buffer.Len(); n > 0 && buflog.buffer.Bytes()[n-1] != '\n' {
		buflog.buffer.WriteByte('\n')
	}
}

func (buflog *BufferedLogger) String() string {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	return buflog.buffer.String()
}

func (buflog *BufferedLogger) Flush(logger Logger) {
	s := buflog.String()
	if s != "" {
		logger.Printf("%v", s)
	}
}

// DiscardLogger drops everything.
type DiscardLogger struct{}

func (DiscardLogger) Printf(string, ...interface{}) {}
