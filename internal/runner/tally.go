package runner

import "context"

type tallyKey struct{}

// Tally counts command attempts made under a context. The driver attaches one
// per component so the summary can report how many tries an install took.
type Tally struct {
	attempts int
}

// WithTally returns a context carrying a fresh Tally.
func WithTally(ctx context.Context) (context.Context, *Tally) {
	t := &Tally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

// Attempts returns the number of attempts recorded so far.
func (t *Tally) Attempts() int {
	if t == nil {
		return 0
	}
	return t.attempts
}

func (t *Tally) add() {
	if t != nil {
		t.attempts++
	}
}

func tallyFrom(ctx context.Context) *Tally {
	t, _ := ctx.Value(tallyKey{}).(*Tally)
	return t
}
