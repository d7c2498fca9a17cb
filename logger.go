package ghal

import (
	"io"
	"log"
	"os"
)

// Logger bundles the three severity sinks the device writes validation and
// lifecycle messages through. Grounded on core.go's info_log/error_log/
// warn_log *log.Logger fields; kept as three loggers rather than one leveled
// logger so a caller can route each severity to a different file exactly as
// the teacher does.
type Logger struct {
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
}

// NewFileLogger opens (or creates) the three named files and returns a
// Logger writing to them, matching NewBaseCore's os.OpenFile calls in
// core.go.
func NewFileLogger(infoPath, warnPath, errorPath string) (*Logger, error) {
	info, err := os.OpenFile(infoPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	warn, err := os.OpenFile(warnPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	errf, err := os.OpenFile(errorPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	return &Logger{
		Info:  log.New(info, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		Warn:  log.New(warn, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		Error: log.New(errf, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}, nil
}

// NewWriterLogger builds a Logger over arbitrary io.Writers, the shape tests
// and embedders that don't want file sinks use.
func NewWriterLogger(info, warn, errorw io.Writer) *Logger {
	return &Logger{
		Info:  log.New(info, "INFO: ", log.Ldate|log.Ltime),
		Warn:  log.New(warn, "WARN: ", log.Ldate|log.Ltime),
		Error: log.New(errorw, "ERROR: ", log.Ldate|log.Ltime),
	}
}

// discardLogger is the default sink used when a Config carries no explicit
// Logger: everything is dropped, same default as the teacher's
// all-default-off Config fields.
func discardLogger() *Logger {
	return NewWriterLogger(io.Discard, io.Discard, io.Discard)
}
