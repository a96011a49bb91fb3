package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color" // Colored console output, one color per level
	"github.com/rs/zerolog"  // JSON lines for the per-run log file
)

// Console colors per level. Green for normal progress, magenta for warnings,
// red for errors and cyan for debug output.
var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiMagenta)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
)

// consoleTimeFormat is the timestamp prefix printed on every console line.
const consoleTimeFormat = "2006-01-02 15:04:05"

// Options configures a Logger.
//   - Console: where colored lines go (defaults to os.Stdout).
//   - LogFile: path of the run log; empty disables file logging.
//   - Debug: print debug lines on the console. The run log always keeps them.
type Options struct {
	Console io.Writer
	LogFile string
	Debug   bool
}

// Logger writes every event twice: a colored, timestamped line on the console
// and a structured JSON line in the run log file.
type Logger struct {
	mu      sync.Mutex
	console io.Writer
	debug   bool
	file    zerolog.Logger
	closer  io.Closer
	path    string
	now     func() time.Time
}

// New builds a Logger. When opts.LogFile is set, its parent directory is
// created and the file is opened in append mode.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		console: opts.Console,
		debug:   opts.Debug,
		file:    zerolog.Nop(),
		now:     time.Now,
	}
	if l.console == nil {
		l.console = os.Stdout
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		l.closer = f
		l.path = opts.LogFile
	}
	return l, nil
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{console: io.Discard, file: zerolog.Nop(), now: time.Now}
}

// Path returns the run log location, or "" when file logging is off.
func (l *Logger) Path() string {
	return l.path
}

// Close flushes and closes the run log file. Later events only reach the
// console.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.file = zerolog.Nop()
	return err
}

// Info logs normal progress.
func (l *Logger) Info(format string, a ...any) {
	l.log(zerolog.InfoLevel, infoColor, "INFO", format, a...)
}

// Warn logs something the user should look at that did not stop the run.
func (l *Logger) Warn(format string, a ...any) {
	l.log(zerolog.WarnLevel, warnColor, "WARN", format, a...)
}

// Error logs a failure.
func (l *Logger) Error(format string, a ...any) {
	l.log(zerolog.ErrorLevel, errorColor, "ERROR", format, a...)
}

// Debug logs verbose details. Console output only appears with --debug.
func (l *Logger) Debug(format string, a ...any) {
	l.log(zerolog.DebugLevel, debugColor, "DEBUG", format, a...)
}

// Attempt records one try of an external command: which attempt it was,
// the label it runs under and how it ended.
func (l *Logger) Attempt(label string, attempt, maxAttempts int, outcome string, exitCode int) {
	level := zerolog.InfoLevel
	c := infoColor
	if outcome != "success" {
		level = zerolog.WarnLevel
		c = warnColor
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = c.Fprintf(l.console, "[%s] [%s] %s: attempt %d/%d %s (exit %d)\n",
		l.now().Format(consoleTimeFormat), strings.ToUpper(level.String()), label, attempt, maxAttempts, outcome, exitCode)
	l.file.WithLevel(level).
		Str("label", label).
		Int("attempt", attempt).
		Int("max_attempts", maxAttempts).
		Str("outcome", outcome).
		Int("exit_code", exitCode).
		Msg("command attempt")
}

func (l *Logger) log(level zerolog.Level, c *color.Color, tag, format string, a ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	if level != zerolog.DebugLevel || l.debug {
		_, _ = c.Fprintf(l.console, "[%s] [%s] %s\n", l.now().Format(consoleTimeFormat), tag, msg)
	}
	l.file.WithLevel(level).Msg(msg)
}

// RunLogPath names the log file of a run started at t.
func RunLogPath(dir string, t time.Time) string {
	return filepath.Join(dir, "devsetup-"+t.Format("20060102-150405")+".log")
}

// std is the process-wide logger used by the CLI layer. It starts as a
// console-only logger so early messages are not lost.
var std = &Logger{console: os.Stdout, file: zerolog.Nop(), now: time.Now}

// Init replaces the default logger with one that also writes a run log in
// logDir. If the log file cannot be created the console logger stays in
// place and the error is returned for the caller to report.
func Init(enableDebug bool, logDir string) (*Logger, error) {
	opts := Options{Console: os.Stdout, Debug: enableDebug}
	if logDir != "" {
		opts.LogFile = RunLogPath(logDir, time.Now())
	}
	l, err := New(opts)
	if err != nil {
		std = &Logger{console: os.Stdout, debug: enableDebug, file: zerolog.Nop(), now: time.Now}
		return std, err
	}
	std = l
	return l, nil
}

// Error logs through the process-wide logger. The CLI uses it for errors
// that surface before or after a command has its own logger.
func Error(format string, a ...any) { std.Error(format, a...) }
