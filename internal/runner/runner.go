// Package runner executes external commands with a bounded exponential
// backoff retry, logging every attempt.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"devsetup/internal/logger"
)

const (
	// DefaultMaxAttempts is the number of tries before a command is reported as failed.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the pause after the first failed attempt. It doubles after each failure.
	DefaultBaseDelay = 2 * time.Second

	// exitNotFound mirrors the shell's "command not found" status.
	exitNotFound = 127
)

// Executor runs one external command to completion and reports its combined
// output and exit code. err is non-nil when the command exited non-zero or
// could not be started.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)
}

// ExecExecutor runs commands on the local host through os/exec.
type ExecExecutor struct{}

// Execute runs name with args and waits for it.
func (ExecExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return out.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.Bytes(), exitErr.ExitCode(), err
	}
	if errors.Is(err, exec.ErrNotFound) {
		return out.Bytes(), exitNotFound, err
	}
	return out.Bytes(), 1, err
}

// Result describes a command that eventually succeeded.
type Result struct {
	Label    string
	Attempts int
	Output   []byte
	Elapsed  time.Duration
	// Waited is the total backoff pause between attempts.
	Waited time.Duration
}

// Failure is returned when a command never succeeded. ExitCode is the status
// of the last attempt.
type Failure struct {
	Label    string
	ExitCode int
	Attempts int
	Output   []byte
	Waited   time.Duration
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s) (exit %d): %v", f.Label, f.Attempts, f.ExitCode, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Runner runs commands with retry.
type Runner struct {
	exec        Executor
	log         *logger.Logger
	maxAttempts int
	baseDelay   time.Duration
	timer       backoff.Timer
	now         func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithExecutor replaces the os/exec backed executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides DefaultBaseDelay.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Runner) { r.baseDelay = d }
}

// WithTimer replaces the timer used for backoff pauses.
func WithTimer(t backoff.Timer) Option {
	return func(r *Runner) { r.timer = t }
}

// New returns a Runner logging through log.
func New(log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		exec:        ExecExecutor{},
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Discard()
	}
	return r
}

// MaxAttempts reports the configured attempt bound.
func (r *Runner) MaxAttempts() int { return r.maxAttempts }

// newBackOff returns a fresh policy: baseDelay, doubling, no jitter,
// stopping after maxAttempts tries in total.
func (r *Runner) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = r.baseDelay << uint(r.maxAttempts)
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.maxAttempts-1)), ctx)
}

// Run executes name with args under label. A non-zero exit is retried until
// the attempt bound is reached; a missing executable fails at once.
func (r *Runner) Run(ctx context.Context, label, name string, args ...string) (Result, error) {
	start := r.now()
	tally := tallyFrom(ctx)

	var (
		attempts int
		waited   time.Duration
		output   []byte
		lastCode int
	)

	operation := func() error {
		attempts++
		tally.add()
		r.log.Debug("%s: running %s %s", label, name, strings.Join(args, " "))

		out, code, err := r.exec.Execute(ctx, name, args...)
		output = out
		lastCode = code
		if err == nil {
			r.log.Attempt(label, attempts, r.maxAttempts, "success", 0)
			return nil
		}

		r.log.Attempt(label, attempts, r.maxAttempts, "failure", code)
		if len(out) > 0 {
			r.log.Debug("%s output:\n%s", label, strings.TrimSpace(string(out)))
		}
		if errors.Is(err, exec.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		waited += next
		r.log.Warn("%s failed, retrying in %s", label, next)
	}

	err := backoff.RetryNotifyWithTimer(operation, r.newBackOff(ctx), notify, r.timer)
	if err != nil {
		r.log.Error("%s failed after %d attempt(s)", label, attempts)
		return Result{}, &Failure{
			Label:    label,
			ExitCode: lastCode,
			Attempts: attempts,
			Output:   output,
			Waited:   waited,
			Err:      err,
		}
	}

	return Result{
		Label:    label,
		Attempts: attempts,
		Output:   output,
		Elapsed:  r.now().Sub(start),
		Waited:   waited,
	}, nil
}

// Output runs a query command once, without retry, and returns its trimmed
// combined output.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	r.log.Debug("query: %s %s", name, strings.Join(args, " "))
	out, _, err := r.exec.Execute(ctx, name, args...)
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath reports whether name resolves to an executable on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
