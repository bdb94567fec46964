// Package drivers resolves the driver names users type into the canonical
// three-letter code and car number the telemetry source keys on.
package drivers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDriver is matched by every UnknownDriverError.
var ErrUnknownDriver = errors.New("unknown driver")

// UnknownDriverError reports an alias missing from the table.
type UnknownDriverError struct {
	Alias string
}

func (e UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown driver %q", e.Alias)
}

// Is reports whether target is ErrUnknownDriver.
func (e UnknownDriverError) Is(target error) bool {
	return target == ErrUnknownDriver
}

// Driver is the canonical identity of a driver.
type Driver struct {
	// Code is the three-letter abbreviation, e.g. "COL".
	Code string `json:"code"`

	// Number is the car number, e.g. 43.
	Number int `json:"number"`

	// Name is the display name.
	Name string `json:"name,omitempty"`
}

// Entry is one configured driver plus the aliases that resolve to it.
// The code and name are always aliases of their own entry.
type Entry struct {
	Driver
	Aliases []string `json:"aliases,omitempty"`
}

// Table maps case-insensitive aliases to drivers. A Table is immutable once
// built and safe for concurrent use.
type Table struct {
	byAlias map[string]Driver
}

// NewTable builds a Table from entries. Two entries claiming the same alias
// for different drivers is an error.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{byAlias: make(map[string]Driver)}

	for _, e := range entries {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if code == "" {
			return nil, errors.New("driver entry has no code")
		}
		if e.Number <= 0 {
			return nil, fmt.Errorf("driver %s has invalid number %d", code, e.Number)
		}

		d := Driver{Code: code, Number: e.Number, Name: strings.TrimSpace(e.Name)}

		aliases := append([]string{code, d.Name}, e.Aliases...)
		for _, alias := range aliases {
			key := normalize(alias)
			if key == "" {
				continue
			}
			if existing, ok := t.byAlias[key]; ok && existing.Code != d.Code {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", alias, existing.Code, d.Code)
			}
			t.byAlias[key] = d
		}
	}

	return t, nil
}

// Default returns the built-in table.
func Default() *Table {
	t, err := NewTable(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultEntries returns the entries used when no drivers are configured.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Driver:  Driver{Code: "COL", Number: 43, Name: "Franco Colapinto"},
			Aliases: []string{"colapinto", "franco"},
		},
	}
}

// Lookup resolves alias to a Driver or returns an UnknownDriverError.
func (t *Table) Lookup(alias string) (Driver, error) {
	if d, ok := t.byAlias[normalize(alias)]; ok {
		return d, nil
	}
	return Driver{}, UnknownDriverError{Alias: alias}
}

// Drivers returns the distinct drivers in the table ordered by code.
func (t *Table) Drivers() []Driver {
	seen := make(map[string]struct{})
	var out []Driver
	for _, d := range t.byAlias {
		if _, ok := seen[d.Code]; ok {
			continue
		}
		seen[d.Code] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func normalize(alias string) string {
	return strings.ToLower(strings.Join(strings.Fields(alias), " "))
}
