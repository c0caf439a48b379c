package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var debug atomic.Bool

// SetDebug toggles Debug and Debugf output.
func SetDebug(on bool) {
	debug.Store(on)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return debug.Load()
}

// SetOutput redirects the standard logger.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetFile sends log output to a size-rotated file at path. The returned
// closer releases the file; callers should close it on exit.
func SetFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // MB
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(lj)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return lj, nil
}

// Print calls the standard log.Print()
func Print(v ...interface{}) {
	log.Output(2, fmt.Sprint(v...))
}

// Printf calls the standard log.Printf()
func Printf(format string, v ...interface{}) {
	log.Output(2, fmt.Sprintf(format, v...))
}

// Println calls the standard log.Println()
func Println(v ...interface{}) {
	log.Output(2, fmt.Sprintln(v...))
}

// Debug logs with a [DEBUG] prefix when debug output is enabled.
func Debug(v ...interface{}) {
	if !debug.Load() {
		return
	}
	log.Output(2, "[DEBUG] "+fmt.Sprint(v...))
}

// Debugf logs with a [DEBUG] prefix when debug output is enabled.
func Debugf(format string, v ...interface{}) {
	if !debug.Load() {
		return
	}
	log.Output(2, "[DEBUG] "+fmt.Sprintf(format, v...))
}
