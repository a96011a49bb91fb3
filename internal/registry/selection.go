package registry

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned when the user backs out of the interactive
// checklist or confirms an empty choice.
var ErrCancelled = errors.New("selection cancelled")

// Mode says how a Selection picks components.
type Mode int

const (
	ModeAll Mode = iota
	ModeNamed
	ModeInteractive
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeNamed:
		return "named"
	case ModeInteractive:
		return "interactive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Selection is the set of components a run was asked for.
type Selection struct {
	Mode  Mode
	Names []string
}

// All selects every registered component.
func All() Selection { return Selection{Mode: ModeAll} }

// Named selects the given components. Unknown names fail the whole run.
func Named(names ...string) Selection { return Selection{Mode: ModeNamed, Names: names} }

// Interactive lets the user pick from a checklist.
func Interactive() Selection { return Selection{Mode: ModeInteractive} }

// Selector asks the user which components to run and returns their names.
type Selector interface {
	Select(components []Component) ([]string, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(components []Component) ([]string, error)

// Select calls f.
func (f SelectorFunc) Select(components []Component) ([]string, error) { return f(components) }

// ChecklistSelector shows a terminal checklist. Space toggles an item,
// ctrl+a toggles all of them, enter confirms and esc/ctrl+c cancels.
type ChecklistSelector struct {
	Title string
}

// Select runs the checklist. Nothing is preselected.
func (s ChecklistSelector) Select(components []Component) ([]string, error) {
	options := make([]huh.Option[string], 0, len(components))
	for _, c := range components {
		options = append(options, huh.NewOption(fmt.Sprintf("%-10s %s", c.Name, c.Description), c.Name))
	}

	title := s.Title
	if title == "" {
		title = "Select components to install"
	}

	var picked []string
	err := huh.NewMultiSelect[string]().
		Title(title).
		Description("space: toggle  ctrl+a: toggle all  enter: confirm").
		Options(options...).
		Height(len(options) + 2).
		Value(&picked).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, err
	}
	return picked, nil
}
