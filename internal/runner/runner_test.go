package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsetup/internal/logger"
)

// scriptedExecutor replays exit codes in order; the last one repeats.
type scriptedExecutor struct {
	codes []int
	calls int
	err   error
}

func (s *scriptedExecutor) Execute(_ context.Context, name string, args ...string) ([]byte, int, error) {
	i := s.calls
	if i >= len(s.codes) {
		i = len(s.codes) - 1
	}
	s.calls++
	if s.err != nil {
		return nil, exitNotFound, s.err
	}
	code := s.codes[i]
	if code == 0 {
		return []byte("ok"), 0, nil
	}
	return []byte(fmt.Sprintf("boom %d", s.calls)), code, fmt.Errorf("exit status %d", code)
}

// fakeTimer fires immediately and remembers every requested pause.
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func (f *fakeTimer) total() time.Duration {
	var sum time.Duration
	for _, w := range f.waits {
		sum += w
	}
	return sum
}

func newTestRunner(exec Executor, timer *fakeTimer) *Runner {
	return New(logger.Discard(), WithExecutor(exec), WithTimer(timer))
}

func TestRunSucceedsFirstTry(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{0}}
	timer := &fakeTimer{}

	res, err := newTestRunner(ex, timer).Run(context.Background(), "install go", "brew", "install", "go")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "ok", string(res.Output))
	assert.Empty(t, timer.waits)
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1, 1, 0}}
	timer := &fakeTimer{}

	res, err := newTestRunner(ex, timer).Run(context.Background(), "install go", "brew", "install", "go")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, ex.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, timer.waits)
	assert.Equal(t, 6*time.Second, res.Waited)
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1, 2, 42}}
	timer := &fakeTimer{}

	_, err := newTestRunner(ex, timer).Run(context.Background(), "install java", "brew", "install", "openjdk")
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "install java", failure.Label)
	assert.Equal(t, 42, failure.ExitCode)
	assert.Equal(t, 3, failure.Attempts)
	assert.Equal(t, 3, ex.calls)
	assert.GreaterOrEqual(t, timer.total(), 6*time.Second)
	assert.Equal(t, timer.total(), failure.Waited)
	assert.Equal(t, "boom 3", string(failure.Output))
}

func TestRunMissingExecutableIsNotRetried(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1}, err: exec.ErrNotFound}
	timer := &fakeTimer{}

	_, err := newTestRunner(ex, timer).Run(context.Background(), "install rust", "rustup-init", "-y")
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Attempts)
	assert.Equal(t, exitNotFound, failure.ExitCode)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.Empty(t, timer.waits)
}

func TestRunCustomPolicy(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1}}
	timer := &fakeTimer{}
	r := New(logger.Discard(), WithExecutor(ex), WithTimer(timer),
		WithMaxAttempts(4), WithBaseDelay(time.Second))

	_, err := r.Run(context.Background(), "flaky", "false")
	require.Error(t, err)
	assert.Equal(t, 4, ex.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, timer.waits)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(logger.Discard(), WithExecutor(ex)).Run(ctx, "cancelled", "false")
	require.Error(t, err)
	assert.Equal(t, 1, ex.calls)
}

func TestTallyCountsAttempts(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1, 0}}
	r := newTestRunner(ex, &fakeTimer{})

	ctx, tally := WithTally(context.Background())
	_, err := r.Run(ctx, "first", "brew", "update")
	require.NoError(t, err)
	_, err = r.Run(ctx, "second", "brew", "install", "node")
	require.NoError(t, err)

	assert.Equal(t, 3, tally.Attempts())

	var none *Tally
	assert.Zero(t, none.Attempts())
}

func TestOutputDoesNotRetry(t *testing.T) {
	ex := &scriptedExecutor{codes: []int{1}}
	r := newTestRunner(ex, &fakeTimer{})

	out, err := r.Output(context.Background(), "brew", "info", "--json=v2", "go")
	require.Error(t, err)
	assert.Equal(t, "boom 1", out)
	assert.Equal(t, 1, ex.calls)
}
