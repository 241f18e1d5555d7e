// Package filters holds the dog-list filter state: nine fixed fields, each
// either at its sentinel ("no filter") or at a concrete value, and the API
// parameters derived from them.
package filters

import "strings"

// Field identifies one filter field by its state key
type Field string

const (
	Breed            Field = "standardizedBreedFilter"
	Sex              Field = "sexFilter"
	Size             Field = "sizeFilter"
	AgeCategory      Field = "ageCategoryFilter"
	SearchQuery      Field = "searchQuery"
	LocationCountry  Field = "locationCountryFilter"
	AvailableCountry Field = "availableCountryFilter"
	AvailableRegion  Field = "availableRegionFilter"
	Organization     Field = "organizationFilter"
)

// Sentinels. LocationCountry and AvailableCountry share the same text but
// are independent fields.
const (
	AnyBreed   = "Any breed"
	AnySex     = "Any"
	AnySize    = "Any size"
	AnyAge     = "Any age"
	NoSearch   = ""
	AnyCountry = "Any country"
	AnyRegion  = "Any region"
	AnyOrg     = "any"
)

type fieldSpec struct {
	field    Field
	short    string
	sentinel string
	apiParam string
}

var fieldSpecs = []fieldSpec{
	{Breed, "breed", AnyBreed, "standardized_breed"},
	{Sex, "sex", AnySex, "sex"},
	{Size, "size", AnySize, "standardized_size"},
	{AgeCategory, "age", AnyAge, "age_category"},
	{SearchQuery, "search", NoSearch, "search"},
	{LocationCountry, "location", AnyCountry, "location_country"},
	{AvailableCountry, "availableCountry", AnyCountry, "available_to_country"},
	{AvailableRegion, "availableRegion", AnyRegion, "available_to_region"},
	{Organization, "organization", AnyOrg, "organization_id"},
}

// FieldCount is the number of filter fields
var FieldCount = len(fieldSpecs)

var (
	byField = make(map[Field]fieldSpec, len(fieldSpecs))
	byShort = make(map[string]fieldSpec, len(fieldSpecs))
	byParam = make(map[string]fieldSpec, len(fieldSpecs))
)

func init() {
	for _, s := range fieldSpecs {
		byField[s.field] = s
		byShort[s.short] = s
		byParam[s.apiParam] = s
	}
}

// Fields returns every field in table order
func Fields() []Field {
	out := make([]Field, len(fieldSpecs))
	for i, s := range fieldSpecs {
		out[i] = s.field
	}
	return out
}

// LookupShort resolves a short alias such as "breed" to its field
func LookupShort(short string) (Field, bool) {
	s, ok := byShort[short]
	return s.field, ok
}

// LookupKey resolves a state key such as "standardizedBreedFilter"
func LookupKey(key string) (Field, bool) {
	s, ok := byField[Field(key)]
	return s.field, ok
}

// LookupParam resolves an API parameter name such as "standardized_breed"
func LookupParam(param string) (Field, bool) {
	s, ok := byParam[param]
	return s.field, ok
}

// Sentinel returns the "no filter" value of f
func (f Field) Sentinel() string {
	return byField[f].sentinel
}

// Short returns the short alias of f
func (f Field) Short() string {
	return byField[f].short
}

// APIParam returns the upstream query parameter name of f
func (f Field) APIParam() string {
	return byField[f].apiParam
}

// Valid reports whether f is one of the known fields
func (f Field) Valid() bool {
	_, ok := byField[f]
	return ok
}

var sizeToAPI = map[string]string{
	"Tiny":        "tiny",
	"Small":       "small",
	"Medium":      "medium",
	"Large":       "large",
	"Extra Large": "xlarge",
}

var sizeFromAPI = map[string]string{
	"tiny":   "Tiny",
	"small":  "Small",
	"medium": "Medium",
	"large":  "Large",
	"xlarge": "Extra Large",
}

// SizeLabels returns the size display labels, smallest first
func SizeLabels() []string {
	return []string{"Tiny", "Small", "Medium", "Large", "Extra Large"}
}

// apiValue maps a display value to what the upstream expects
func apiValue(f Field, v string) string {
	if f != Size {
		return v
	}
	if mapped, ok := sizeToAPI[v]; ok {
		return mapped
	}
	return strings.ToLower(v)
}

// displayValue is the inverse of apiValue for values read back from a query
func displayValue(f Field, v string) string {
	if f != Size {
		return v
	}
	if label, ok := sizeFromAPI[v]; ok {
		return label
	}
	return v
}
