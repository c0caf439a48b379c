package adapter

import (
	"errors"
	"fmt"
)

// Capability is the set of wallpaper operations a tool supports.
type Capability uint8

const (
	CanGet Capability = 1 << iota
	CanSet
)

func (c Capability) String() string {
	switch c {
	case CanGet:
		return "get"
	case CanSet:
		return "set"
	case CanGet | CanSet:
		return "get,set"
	}
	return "none"
}

// Spec describes how to drive one desktop-environment wallpaper tool.
type Spec struct {
	Command string
	Caps    Capability

	// GetArgs is passed verbatim when reading the current wallpaper.
	GetArgs []string

	// SetArgs builds the argument vector for an absolute image path.
	SetArgs func(abs string) []string

	// Transform normalizes the trimmed output of a get call. Optional.
	Transform func(raw string) string
}

// Can reports whether the tool supports every capability in c.
func (s Spec) Can(c Capability) bool {
	return c != 0 && s.Caps&c == c
}

// SetCommand returns a fresh argument vector that sets abs as the wallpaper.
func (s Spec) SetCommand(abs string) []string {
	if s.SetArgs == nil {
		return nil
	}
	return s.SetArgs(abs)
}

// GetCommand returns a copy of the argument vector used to read the wallpaper.
func (s Spec) GetCommand() []string {
	return append([]string(nil), s.GetArgs...)
}

// Normalize applies the tool's output transform, if any.
func (s Spec) Normalize(raw string) string {
	if s.Transform == nil {
		return raw
	}
	return s.Transform(raw)
}

// Catalogue is an ordered, immutable list of known tools. Order is preference.
type Catalogue struct {
	specs []Spec
	index map[string]int
}

// NewCatalogue validates specs and returns them as a catalogue.
func NewCatalogue(specs ...Spec) (*Catalogue, error) {
	c := &Catalogue{
		specs: make([]Spec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if s.Command == "" {
			return nil, errors.New("adapter: empty command name")
		}
		if !validCommand(s.Command) {
			return nil, fmt.Errorf("adapter: invalid command name %q", s.Command)
		}
		if _, dup := c.index[s.Command]; dup {
			return nil, fmt.Errorf("adapter: duplicate command %q", s.Command)
		}
		if s.Can(CanGet) && s.GetArgs == nil {
			return nil, fmt.Errorf("adapter: %s declares get without arguments", s.Command)
		}
		if s.Can(CanSet) && s.SetArgs == nil {
			return nil, fmt.Errorf("adapter: %s declares set without an argument builder", s.Command)
		}
		c.index[s.Command] = len(c.specs)
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// validCommand accepts bare executable names that are safe to place in a
// shell script unquoted.
func validCommand(name string) bool {
	if name[0] == '-' {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '+' || r == '-':
		default:
			return false
		}
	}
	return true
}

// MustCatalogue is like NewCatalogue but panics on invalid input.
func MustCatalogue(specs ...Spec) *Catalogue {
	c, err := NewCatalogue(specs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalogue) Specs() []Spec {
	return append([]Spec(nil), c.specs...)
}

// Names returns the command names in catalogue order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.specs))
	for i, s := range c.specs {
		names[i] = s.Command
	}
	return names
}

func (c *Catalogue) Lookup(name string) (Spec, bool) {
	i, ok := c.index[name]
	if !ok {
		return Spec{}, false
	}
	return c.specs[i], true
}

func (c *Catalogue) Len() int {
	return len(c.specs)
}
