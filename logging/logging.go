package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	outputMutex sync.Mutex
	stdout      io.Writer = os.Stdout
	stderr      io.Writer = os.Stderr
)

// SetOutput redirects info messages to out and warnings and errors to errOut.
// Passing nil restores the corresponding default.
func SetOutput(out, errOut io.Writer) {
	outputMutex.Lock()
	defer outputMutex.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

func write(w *io.Writer, format string, args []interface{}) {
	outputMutex.Lock()
	defer outputMutex.Unlock()
	fmt.Fprintf(*w, format, args...)
}

func Info(format string, args ...interface{}) {
	_format := "[I] " + format + "\n"
	write(&stdout, _format, args)
}

func Warn(format string, args ...interface{}) {
	_format := "[W] " + format + "\n"
	write(&stderr, _format, args)
}

func Error(format string, args ...interface{}) {
	_format := "[E] " + format + "\n"
	write(&stderr, _format, args)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(msg)
}

// Printer hands log calls to the package level functions. Use it wherever a
// component takes a logger value.
type Printer struct{}

func (Printer) Info(format string, args ...interface{}) { Info(format, args...) }
func (Printer) Error(format string, args ...interface{}) { Error(format, args...) }
