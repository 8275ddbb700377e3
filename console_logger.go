package scraper

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type ConsoleLogger struct{}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	fmt.Printf(format, a...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Println()
	}
}

// ZapLogger routes Printf style messages into a zap logger at info level.
type ZapLogger struct {
	Sugar *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) ZapLogger {
	return ZapLogger{Sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (logger ZapLogger) Printf(format string, a ...interface{}) {
	logger.Sugar.Infof(strings.TrimRight(format, "\n"), a...)
}
