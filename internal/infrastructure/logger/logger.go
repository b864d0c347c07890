package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

const logFlags = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

func init() {
	Info = log.New(os.Stdout, "INFO: ", logFlags)
	Error = log.New(os.Stdout, "ERROR: ", logFlags)
	Debug = log.New(io.Discard, "DEBUG: ", logFlags)
	Warn = log.New(os.Stdout, "WARN: ", logFlags)
}

// SetLevel adjusts which loggers emit. Debug stays off unless the level is
// "debug"; "warn" and "error" progressively silence the lower levels.
func SetLevel(level string) {
	debugOut, infoOut, warnOut := io.Discard, io.Discard, io.Discard
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		debugOut = os.Stdout
		infoOut = os.Stdout
		warnOut = os.Stdout
	case "warn":
		warnOut = os.Stdout
	case "error":
	default:
		infoOut = os.Stdout
		warnOut = os.Stdout
	}

	Debug = log.New(debugOut, "DEBUG: ", logFlags)
	Info = log.New(infoOut, "INFO: ", logFlags)
	Warn = log.New(warnOut, "WARN: ", logFlags)
	Error = log.New(os.Stdout, "ERROR: ", logFlags)
}
