// Package triggerdef loads event trigger definition tables: bidirectional
// mappings between human-readable event names and the numeric values carried
// on marker streams.
//
// Definitions live in YAML files mapping names to integer values:
//
//	events:
//	  rest: 1
//	  left: 11
//	  right: 12
//
// Both directions must be unique; duplicate names or values are rejected at
// load time so an ambiguous recording can never be produced.
package triggerdef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360/neurostream/errors"
)

// Definition is an immutable name⇄value event table.
type Definition struct {
	byName  map[string]int
	byValue map[int]string
}

type fileFormat struct {
	Events map[string]int `yaml:"events"`
}

// Load reads a definition table from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "TriggerDef", "Load", "read definition file")
	}
	return Parse(data)
}

// Parse builds a definition table from YAML bytes.
func Parse(data []byte) (*Definition, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapInvalid(err, "TriggerDef", "Parse", "unmarshal yaml")
	}
	return New(f.Events)
}

// New builds a definition table from a name→value map, rejecting duplicate
// values and non-positive entries (0 is reserved for "no event").
func New(events map[string]int) (*Definition, error) {
	if len(events) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "TriggerDef", "New", "empty event table")
	}

	d := &Definition{
		byName:  make(map[string]int, len(events)),
		byValue: make(map[int]string, len(events)),
	}
	for name, value := range events {
		if name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "TriggerDef", "New", "empty event name")
		}
		if value <= 0 {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "TriggerDef", "New",
				fmt.Sprintf("event %q has non-positive value %d", name, value))
		}
		if existing, dup := d.byValue[value]; dup {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "TriggerDef", "New",
				fmt.Sprintf("value %d assigned to both %q and %q", value, existing, name))
		}
		d.byName[name] = value
		d.byValue[value] = name
	}
	return d, nil
}

// Value resolves an event name to its numeric value.
func (d *Definition) Value(name string) (int, bool) {
	v, ok := d.byName[name]
	return v, ok
}

// Name resolves a numeric value to its event name.
func (d *Definition) Name(value int) (string, bool) {
	n, ok := d.byValue[value]
	return n, ok
}

// Len returns the number of defined events.
func (d *Definition) Len() int {
	return len(d.byName)
}

// Names returns every defined event name. Order is unspecified.
func (d *Definition) Names() []string {
	names := make([]string, 0, len(d.byName))
	for n := range d.byName {
		names = append(names, n)
	}
	return names
}

// Marshal renders the table back to YAML.
func (d *Definition) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(fileFormat{Events: d.byName})
	if err != nil {
		return nil, errors.WrapInvalid(err, "TriggerDef", "Marshal", "marshal yaml")
	}
	return out, nil
}
