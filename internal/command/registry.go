package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ParamType tags how a parameter value is validated and coerced.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamEnum    ParamType = "enum"
	ParamPath    ParamType = "path"
)

// ParamSpec describes one parameter of a command. Order in the definition is
// the order missing parameters are prompted for.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	// Values lists the accepted values for ParamEnum parameters.
	Values []string
	// Pattern is an optional validation regexp applied to the raw value.
	Pattern *regexp.Regexp
	// Prompt is the question asked when the parameter is missing.
	Prompt string
}

// Definition is an immutable command definition: its parameter schema, the
// single permission it requires, and the remote operation it binds to.
// Definitions are created once at process start and never mutated.
type Definition struct {
	Name        string
	Description string
	Params      []ParamSpec
	Permission  string
	Operation   string
	// Local marks commands resolved without a remote call (e.g. help).
	Local bool
}

// Param returns the spec for a parameter name, if the command declares it.
func (d *Definition) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// MissingParams returns the required parameters absent from the given value
// map, in declaration order.
func (d *Definition) MissingParams(values map[string]string) []string {
	var missing []string
	for _, p := range d.Params {
		if !p.Required {
			continue
		}
		if _, ok := values[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// ErrUnknownCommand reports a lookup miss. Free text that does not match a
// known command name is always a miss: there is no fuzzy matching.
type ErrUnknownCommand struct {
	Name string
}

func (e *ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Registry is an immutable catalog of command definitions keyed by name.
type Registry struct {
	defs  map[string]*Definition
	names []string // sorted, for stable listings
}

// NewRegistry builds a registry from the given definitions. Duplicate names
// panic: the catalog is static and a duplicate is a programming error.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		name := strings.ToLower(defs[i].Name)
		if _, dup := r.defs[name]; dup {
			panic("command: duplicate definition " + name)
		}
		r.defs[name] = &defs[i]
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the definition for a command name. Matching is
// case-insensitive and exact.
func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.defs[strings.ToLower(name)]
	if !ok {
		return nil, &ErrUnknownCommand{Name: name}
	}
	return def, nil
}

// Describe returns a one-line usage string for a command, for help text.
func (r *Registry) Describe(name string) (string, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(def.Name)
	for _, p := range def.Params {
		if p.Required {
			fmt.Fprintf(&b, " --%s <%s>", p.Name, p.Type)
		} else {
			fmt.Fprintf(&b, " [--%s <%s>]", p.Name, p.Type)
		}
	}
	b.WriteString(" - " + def.Description)
	return b.String(), nil
}

// All returns every definition, sorted by name.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.defs[name])
	}
	return out
}
