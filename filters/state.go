package filters

// State is the full set of filter values. It is a plain value; copies are
// independent.
type State struct {
	StandardizedBreed string `json:"standardizedBreedFilter"`
	Sex               string `json:"sexFilter"`
	Size              string `json:"sizeFilter"`
	AgeCategory       string `json:"ageCategoryFilter"`
	SearchQuery       string `json:"searchQuery"`
	LocationCountry   string `json:"locationCountryFilter"`
	AvailableCountry  string `json:"availableCountryFilter"`
	AvailableRegion   string `json:"availableRegionFilter"`
	Organization      string `json:"organizationFilter"`
}

// DefaultState returns a state with every field at its sentinel
func DefaultState() State {
	return State{
		StandardizedBreed: AnyBreed,
		Sex:               AnySex,
		Size:              AnySize,
		AgeCategory:       AnyAge,
		SearchQuery:       NoSearch,
		LocationCountry:   AnyCountry,
		AvailableCountry:  AnyCountry,
		AvailableRegion:   AnyRegion,
		Organization:      AnyOrg,
	}
}

func (s *State) ref(f Field) *string {
	switch f {
	case Breed:
		return &s.StandardizedBreed
	case Sex:
		return &s.Sex
	case Size:
		return &s.Size
	case AgeCategory:
		return &s.AgeCategory
	case SearchQuery:
		return &s.SearchQuery
	case LocationCountry:
		return &s.LocationCountry
	case AvailableCountry:
		return &s.AvailableCountry
	case AvailableRegion:
		return &s.AvailableRegion
	case Organization:
		return &s.Organization
	default:
		return nil
	}
}

// Get returns the value of f; ok is false for an unknown field
func (s State) Get(f Field) (value string, ok bool) {
	p := s.ref(f)
	if p == nil {
		return "", false
	}
	return *p, true
}

// With returns a copy of s with f set to value. Unknown fields leave the
// copy unchanged.
func (s State) With(f Field, value string) State {
	if p := s.ref(f); p != nil {
		*p = value
	}
	return s
}

// IsActive reports whether f holds something other than its sentinel
func (s State) IsActive(f Field) bool {
	v, ok := s.Get(f)
	return ok && v != f.Sentinel()
}

// ActiveCount is the number of fields not at their sentinel
func (s State) ActiveCount() int {
	n := 0
	for _, spec := range fieldSpecs {
		if s.IsActive(spec.field) {
			n++
		}
	}
	return n
}

// APIParams maps every active field to its upstream parameter. Fields at
// their sentinel never appear.
func (s State) APIParams() map[string]string {
	params := make(map[string]string)
	for _, spec := range fieldSpecs {
		v, _ := s.Get(spec.field)
		if v == spec.sentinel {
			continue
		}
		params[spec.apiParam] = apiValue(spec.field, v)
	}
	return params
}

// Active returns the active fields in table order
func (s State) Active() []Field {
	var out []Field
	for _, spec := range fieldSpecs {
		if s.IsActive(spec.field) {
			out = append(out, spec.field)
		}
	}
	return out
}
