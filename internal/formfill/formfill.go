// Package formfill implements the form-value oracle: a lookup from a
// form's field-name shape to the values that should be submitted for it.
package formfill

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoValues is returned by Fill when no entry was registered for a
// form's field-name signature.
var ErrNoValues = errors.New("formfill: no values registered for this form shape")

// Values is the set of field name -> submission value pairs for one form.
type Values map[string]string

// Filler is a signature-keyed table of known-good form values: forms are
// matched by the sorted set of their non-empty field names, not by
// position or page, so one entry can answer for every form sharing that
// shape across the crawl.
type Filler struct {
	entries map[string]Values
}

func New() *Filler {
	return &Filler{entries: make(map[string]Values)}
}

// Add registers values as the submission for any form whose field names
// are exactly the keys of values.
func (f *Filler) Add(values Values) {
	f.entries[signature(keysOf(values))] = values
}

// Fill looks up the value set registered for a form carrying exactly these
// field names. Blank names (an unnamed input) are ignored.
func (f *Filler) Fill(fieldNames []string) (Values, error) {
	v, ok := f.entries[signature(fieldNames)]
	if !ok {
		return nil, ErrNoValues
	}
	return v, nil
}

func signature(names []string) string {
	filtered := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			filtered = append(filtered, n)
		}
	}
	sort.Strings(filtered)
	return strings.Join(filtered, "\x00")
}

func keysOf(v Values) []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	return out
}
