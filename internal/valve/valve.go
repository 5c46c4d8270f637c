// Package valve owns the hardware valve driver: a named set of valves, each
// wired to one GPIO output line. Opening or shutting a valve mutates
// hardware state, so callers go through an exclusive environment handle.
package valve

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/irrigctl/internal/config"
	"github.com/danmuck/irrigctl/internal/environment"
	"github.com/danmuck/irrigctl/internal/observability"
)

// State is the observed position of a valve.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Valve is one controlled valve on a GPIO output line.
type Valve struct {
	name string
	pin  uint64
	line Line
}

func (v *Valve) Name() string { return v.name }
func (v *Valve) Pin() uint64  { return v.pin }

// Open opens the valve.
func (v *Valve) Open() error {
	if err := v.line.SetValue(1); err != nil {
		return fmt.Errorf("valve: open %s: %w", v.name, err)
	}
	observability.RecordValveSwitch(v.name, true)
	log.Info().Str("valve", v.name).Uint64("pin", v.pin).Msg("valve opened")
	return nil
}

// Shut closes the valve.
func (v *Valve) Shut() error {
	if err := v.line.SetValue(0); err != nil {
		return fmt.Errorf("valve: shut %s: %w", v.name, err)
	}
	observability.RecordValveSwitch(v.name, false)
	log.Info().Str("valve", v.name).Uint64("pin", v.pin).Msg("valve shut")
	return nil
}

// State reads the valve position back from the line.
func (v *Valve) State() (State, error) {
	val, err := v.line.Value()
	if err != nil {
		return StateClosed, err
	}
	if val == 0 {
		return StateClosed, nil
	}
	return StateOpen, nil
}

// Valves is the registry-hosted set of controlled valves, keyed by name.
type Valves struct {
	open   OpenFunc
	valves map[string]*Valve
}

// New creates an empty valve set. A nil open falls back to the sysfs
// driver.
func New(open OpenFunc) *Valves {
	if open == nil {
		open = openSysfsLine
	}
	return &Valves{open: open, valves: make(map[string]*Valve)}
}

// Start returns the construction hook registering the valve set described
// by the configuration. A valve that cannot be exported is fatal: the
// controller must not run with half its hardware missing.
func Start(entries []config.ValveConfig) environment.StartFunc[*Valves] {
	return func(env *environment.Environment, ed *environment.Editor) *Valves {
		vs := New(nil)
		for _, e := range entries {
			if err := vs.RegisterValve(e.Name, e.Pin); err != nil {
				log.Fatal().Err(err).Str("valve", e.Name).Uint64("pin", e.Pin).
					Msg("valve: cannot bring up configured valve")
			}
		}
		return vs
	}
}

// RegisterValve exports the pin and adds the valve under name.
func (vs *Valves) RegisterValve(name string, pin uint64) error {
	if _, exists := vs.valves[name]; exists {
		return fmt.Errorf("valve: %s already registered", name)
	}
	line, err := vs.open(pin)
	if err != nil {
		return err
	}
	vs.valves[name] = &Valve{name: name, pin: pin, line: line}
	return nil
}

// Get returns a valve by name.
func (vs *Valves) Get(name string) (*Valve, bool) {
	v, ok := vs.valves[name]
	return v, ok
}

// Names returns the registered valve names in sorted order.
func (vs *Valves) Names() []string {
	out := make([]string, 0, len(vs.valves))
	for name := range vs.valves {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReleaseLines restores every line to an input and unexports it. Failures
// are logged rather than returned; shutdown keeps going.
func (vs *Valves) ReleaseLines() {
	for name, v := range vs.valves {
		if err := v.line.Close(); err != nil {
			log.Error().Err(err).Str("valve", name).Msg("valve: release failed")
		}
	}
}
