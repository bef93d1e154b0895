// Package logger is the process-wide dual-sink logger: every line goes to
// the run's log file once Init has opened one, and console-level lines are
// echoed to stdout. Before Init, console-level lines still print and
// file-only lines are dropped, so tests and library callers need no setup.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	mu   sync.Mutex
	sink *log.Logger
	file *os.File
)

// Init opens one log file for this analysis run under dir, named after
// the run label (typically the proxy address) so concurrent CI runs don't
// interleave their traces.
func Init(dir, label string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("analysis_%s_%s.log", sanitizeLabel(label), stamp)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	file = f
	sink = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	mu.Unlock()

	fmt.Printf("log file: %s\n", path)
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
		sink = nil
	}
}

func Info(format string, v ...any)  { emit("INFO", true, format, v...) }
func Warn(format string, v ...any)  { emit("WARN", true, format, v...) }
func Error(format string, v ...any) { emit("ERROR", true, format, v...) }

// Debug is file-only; it never reaches the console.
func Debug(format string, v ...any) { emit("DEBUG", false, format, v...) }

// InfoFileOnly is for the high-volume per-analyzer trace lines that would
// spam the terminal.
func InfoFileOnly(format string, v ...any) { emit("INFO", false, format, v...) }

// emit writes one line to the active sinks. console controls the stdout
// echo only; file-only lines are dropped entirely before Init.
func emit(level string, console bool, format string, v ...any) {
	line := "[" + level + "] " + strings.TrimRight(fmt.Sprintf(format, v...), "\n")

	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		// calldepth 3 attributes the line to emit's exported caller's
		// call site, not to emit itself.
		sink.Output(3, line+"\n")
	}
	if console {
		fmt.Println(line)
	}
}

func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "run"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
