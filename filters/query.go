package filters

import (
	"net/url"
	"strings"
)

// FromQuery builds a state from URL query values. Each field is read from
// its API parameter name first, then its state key. Missing or blank values
// leave the sentinel. Size accepts either API values ("xlarge") or labels.
func FromQuery(q url.Values) State {
	s := DefaultState()
	for _, spec := range fieldSpecs {
		v := q.Get(spec.apiParam)
		if v == "" {
			v = q.Get(string(spec.field))
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		s = s.With(spec.field, displayValue(spec.field, v))
	}
	return s
}

// Query renders the active fields as URL values keyed by API parameter
func (s State) Query() url.Values {
	q := url.Values{}
	for k, v := range s.APIParams() {
		q.Set(k, v)
	}
	return q
}
