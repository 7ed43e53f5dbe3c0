package logger

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	log   *log.Logger
	warn  *log.Logger
	err   *log.Logger
	trace *log.Logger

	debug bool
}

func New(prefix string) Logger {
	return NewTo(prefix, os.Stdout, os.Stderr)
}

// NewTo routes Log to out and everything else to errOut.
func NewTo(prefix string, out, errOut io.Writer) Logger {
	return Logger{
		log:   log.New(out, "["+prefix+"] ", log.Ldate|log.Ltime),
		warn:  log.New(errOut, "["+prefix+" WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		err:   log.New(errOut, "["+prefix+" ERR] ", log.Ldate|log.Ltime|log.Llongfile),
		trace: log.New(errOut, "["+prefix+" TRACE] ", log.Ldate|log.Ltime|log.Llongfile),
	}
}

// WithDebug returns a copy that emits Trace lines when on is true.
func (l Logger) WithDebug(on bool) Logger {
	l.debug = on
	return l
}

func (l Logger) Log(format string, a ...interface{}) {
	l.log.Printf(format, a...)
}
func (l Logger) Warn(format string, a ...interface{}) {
	l.warn.Printf(format, a...)
}
func (l Logger) Err(err error, format string, a ...interface{}) {
	if err != nil {
		l.err.Printf(format+", "+err.Error(), a...)
	} else {
		l.err.Printf(format, a...)
	}
}
func (l Logger) Trace(format string, a ...interface{}) {
	if !l.debug {
		return
	}
	l.trace.Printf(format, a...)
}
