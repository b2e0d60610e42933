package migrate

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// gooseSlogLogger routes goose progress lines into the service logger.
type gooseSlogLogger struct {
	logger *slog.Logger
}

func gooseMessage(format string, v ...any) string {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	return strings.TrimSpace(strings.TrimPrefix(msg, "goose:"))
}

func (l gooseSlogLogger) Printf(format string, v ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Info(gooseMessage(format, v...), "component", "goose")
}

// Fatalf is only reached on unrecoverable migration errors; the API must not
// start on a half-migrated schema.
func (l gooseSlogLogger) Fatalf(format string, v ...any) {
	if l.logger != nil {
		l.logger.Error(gooseMessage(format, v...), "component", "goose")
	}
	os.Exit(1)
}
