package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"devsetup/internal/logger"
	"devsetup/internal/runner"
)

// Outcome is the terminal state of one component in a run.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
)

// Attempt records how one component went.
type Attempt struct {
	Name     string
	Attempts int // external command attempts, retries included
	Outcome  Outcome
	Elapsed  time.Duration
	Err      error
}

// Summary is the result of a run. The driver builds it; callers only read it.
type Summary struct {
	Action    string
	Total     int
	Succeeded []string
	Failed    []Attempt
	Attempts  []Attempt
	StartedAt time.Time
	Elapsed   time.Duration
}

// OK reports whether every component succeeded.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// FailedNames returns the names of failed components in run order.
func (s Summary) FailedNames() []string {
	names := make([]string, 0, len(s.Failed))
	for _, a := range s.Failed {
		names = append(names, a.Name)
	}
	return names
}

// RerunCommands returns one command per failed component that retries only
// that component.
func (s Summary) RerunCommands(binary string) []string {
	cmds := make([]string, 0, len(s.Failed))
	for _, a := range s.Failed {
		if s.Action == "uninstall" || s.Action == "verify" {
			cmds = append(cmds, fmt.Sprintf("%s %s %s", binary, s.Action, a.Name))
			continue
		}
		cmds = append(cmds, fmt.Sprintf("%s %s", binary, a.Name))
	}
	return cmds
}

func (s *Summary) record(a Attempt) {
	s.Attempts = append(s.Attempts, a)
	if a.Outcome == Succeeded {
		s.Succeeded = append(s.Succeeded, a.Name)
		return
	}
	s.Failed = append(s.Failed, a)
}

// Driver runs selections against a registry, one component at a time.
type Driver struct {
	registry *Registry
	selector Selector
	log      *logger.Logger
	now      func() time.Time
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithSelector sets the interactive selector.
func WithSelector(s Selector) DriverOption {
	return func(d *Driver) { d.selector = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) { d.now = now }
}

// NewDriver returns a driver over r that logs through log.
func NewDriver(r *Registry, log *logger.Logger, opts ...DriverOption) *Driver {
	d := &Driver{registry: r, selector: ChecklistSelector{}, log: log, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Discard()
	}
	return d
}

// Resolve turns a selection into the components to run, in registry order.
// Interactive selections are asked for here and fed through the same
// validation as named ones.
func (d *Driver) Resolve(sel Selection) ([]Component, error) {
	switch sel.Mode {
	case ModeAll:
		return d.registry.Components(), nil
	case ModeNamed:
		if len(sel.Names) == 0 {
			return nil, &InvalidSelectionError{Known: d.registry.Names()}
		}
		return d.registry.resolveNames(sel.Names)
	case ModeInteractive:
		names, err := d.selector.Select(d.registry.Components())
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, ErrCancelled
		}
		return d.registry.resolveNames(names)
	default:
		return nil, fmt.Errorf("unsupported selection mode %s", sel.Mode)
	}
}

// Validate checks a selection without prompting, so a bad component name is
// reported before any precondition.
func (d *Driver) Validate(sel Selection) error {
	if sel.Mode != ModeNamed {
		return nil
	}
	_, err := d.Resolve(sel)
	return err
}

// Run installs the selected components in registry order. A failing
// component is recorded and the run moves on. The returned error is non-nil
// only when the selection itself is invalid or cancelled, in which case no
// component was touched.
func (d *Driver) Run(ctx context.Context, sel Selection) (Summary, error) {
	components, err := d.Resolve(sel)
	if err != nil {
		return Summary{Action: "install"}, err
	}
	return d.execute(ctx, "install", components, func(c Component) Operation { return c.Install }), nil
}

// Uninstall removes the selected components in reverse registry order with
// the same continue-on-error policy as Run.
func (d *Driver) Uninstall(ctx context.Context, sel Selection) (Summary, error) {
	components, err := d.Resolve(sel)
	if err != nil {
		return Summary{Action: "uninstall"}, err
	}
	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return d.execute(ctx, "uninstall", components, func(c Component) Operation { return c.Uninstall }), nil
}

// Verify checks the selected components in registry order without changing
// anything.
func (d *Driver) Verify(ctx context.Context, sel Selection) (Summary, error) {
	components, err := d.Resolve(sel)
	if err != nil {
		return Summary{Action: "verify"}, err
	}
	return d.execute(ctx, "verify", components, func(c Component) Operation { return c.Verify }), nil
}

func (d *Driver) execute(ctx context.Context, action string, components []Component, pick func(Component) Operation) Summary {
	summary := Summary{Action: action, Total: len(components), StartedAt: d.now()}

	for i, c := range components {
		d.log.Info("[%d/%d] %s %s: %s", i+1, len(components), action, c.Name, c.Description)

		start := d.now()
		cctx, tally := runner.WithTally(ctx)
		err := d.invoke(cctx, c, pick(c))

		a := Attempt{Name: c.Name, Attempts: tally.Attempts(), Elapsed: d.now().Sub(start), Err: err}
		if err != nil {
			a.Outcome = Failed
			d.log.Error("%s %s failed: %v", action, c.Name, err)
		} else {
			a.Outcome = Succeeded
			d.log.Info("%s %s done", action, c.Name)
		}
		summary.record(a)
	}

	summary.Elapsed = d.now().Sub(summary.StartedAt)
	return summary
}

// invoke runs op and turns a panic into a component failure so one broken
// component cannot take the rest of the run down.
func (d *Driver) invoke(ctx context.Context, c Component, op Operation) (err error) {
	if op == nil {
		return errors.New("operation not supported")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", c.Name, r)
		}
	}()
	return op(ctx)
}
