package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter prints bare messages. Warnings and errors are prefixed with their level
// so they stand out from regular output.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level <= log.WarnLevel {
		return []byte(fmt.Sprintf("%s: %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
	}
	return []byte(fmt.Sprintf("%s\n", entry.Message)), nil
}

var NullLogger = &log.Logger{
	Out:       io.Discard,
	Formatter: new(log.TextFormatter),
	Hooks:     make(log.LevelHooks),
	Level:     log.PanicLevel,
}
