package property

import "strings"

// Type is the property category.
type Type string

// Property types.
const (
	TypeUnknown     Type = ""
	TypeResidential Type = "residential"
	TypeCondo       Type = "condo"
	TypeTownhouse   Type = "townhouse"
	TypeMultiFamily Type = "multi_family"
	TypeCommercial  Type = "commercial"
	TypeLand        Type = "land"
)

// IsValid reports whether t is a known non-empty type.
func (t Type) IsValid() bool {
	switch t {
	case TypeResidential, TypeCondo, TypeTownhouse, TypeMultiFamily, TypeCommercial, TypeLand:
		return true
	default:
		return false
	}
}

// ParseType maps the loose labels providers use onto a Type.
// Unrecognized labels return TypeUnknown.
func ParseType(label string) Type {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return TypeUnknown
	case strings.Contains(l, "condo"), strings.Contains(l, "co-op"), strings.Contains(l, "apartment"):
		return TypeCondo
	case strings.Contains(l, "town"):
		return TypeTownhouse
	case strings.Contains(l, "multi"), strings.Contains(l, "duplex"), strings.Contains(l, "triplex"),
		strings.Contains(l, "fourplex"):
		return TypeMultiFamily
	case strings.Contains(l, "commercial"), strings.Contains(l, "retail"), strings.Contains(l, "office"):
		return TypeCommercial
	case strings.Contains(l, "land"), strings.Contains(l, "lot"), strings.Contains(l, "vacant"):
		return TypeLand
	case strings.Contains(l, "residential"), strings.Contains(l, "single"), l == "sfr",
		strings.Contains(l, "house"):
		return TypeResidential
	default:
		return TypeUnknown
	}
}

// UnmarshalText lets YAML/JSON decoders accept provider labels.
func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}
