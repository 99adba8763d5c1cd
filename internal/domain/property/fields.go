package property

import (
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/geo"
)

// MinYearBuilt is the oldest construction year accepted from a provider.
const MinYearBuilt = 1700

// placeholders are sentinel strings providers emit instead of leaving a field empty.
var placeholders = map[string]struct{}{
	"":        {},
	"N/A":     {},
	"NA":      {},
	"NONE":    {},
	"NULL":    {},
	"NIL":     {},
	"UNKNOWN": {},
	"-":       {},
	"--":      {},
	"0":       {},
	"TBD":     {},
}

// IsPlaceholder reports whether s is empty or a known sentinel value.
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// fieldSpec bundles presence, validity and copy for one field.
type fieldSpec struct {
	isSet func(p *Property) bool
	valid func(p *Property) bool
	copy  func(dst, src *Property)
}

// Fields lists every resolvable field in canonical order.
var Fields = []Field{
	FieldParcelID, FieldStreet, FieldCity, FieldState, FieldZip, FieldLocation,
	FieldSquareFeet, FieldBedrooms, FieldBathrooms, FieldLotSize, FieldYearBuilt,
	FieldStories, FieldType, FieldSalePrice, FieldSaleDate, FieldDaysOnMarket,
	FieldListPrice, FieldConcessions, FieldFeatures,
}

// OptionalFields are the non-identity attributes a provider may fill.
var OptionalFields = Fields[6:]

var identityFields = []Field{FieldParcelID, FieldStreet, FieldCity, FieldState, FieldZip}

// validators is the single per-field validity table shared by every merge.
var validators = map[Field]fieldSpec{
	FieldParcelID: stringSpec(func(p *Property) *string { return &p.ParcelID }),
	FieldStreet:   stringSpec(func(p *Property) *string { return &p.Address.Street }),
	FieldCity:     stringSpec(func(p *Property) *string { return &p.Address.City }),
	FieldState:    stringSpec(func(p *Property) *string { return &p.Address.State }),
	FieldZip:      stringSpec(func(p *Property) *string { return &p.Address.Zip }),
	FieldLocation: {
		isSet: func(p *Property) bool { return p.Location != nil },
		valid: func(p *Property) bool { return validCoordinates(*p.Location) },
		copy: func(dst, src *Property) {
			loc := *src.Location
			dst.Location = &loc
		},
	},
	FieldSquareFeet:   positiveSpec(func(p *Property) **int { return &p.SquareFeet }),
	FieldBedrooms:     positiveSpec(func(p *Property) **int { return &p.Bedrooms }),
	FieldBathrooms:    positiveSpec(func(p *Property) **float64 { return &p.Bathrooms }),
	FieldLotSize:      positiveSpec(func(p *Property) **float64 { return &p.LotSizeSqft }),
	FieldStories:      positiveSpec(func(p *Property) **int { return &p.Stories }),
	FieldSalePrice:    positiveSpec(func(p *Property) **float64 { return &p.SalePrice }),
	FieldDaysOnMarket: positiveSpec(func(p *Property) **int { return &p.DaysOnMarket }),
	FieldListPrice:    positiveSpec(func(p *Property) **float64 { return &p.ListPrice }),
	FieldConcessions:  positiveSpec(func(p *Property) **float64 { return &p.SellerConcessions }),
	FieldYearBuilt: {
		isSet: func(p *Property) bool { return p.YearBuilt != nil },
		valid: func(p *Property) bool {
			y := *p.YearBuilt
			return y >= MinYearBuilt && y <= time.Now().Year()+1
		},
		copy: func(dst, src *Property) { dst.YearBuilt = clonePtr(src.YearBuilt) },
	},
	FieldType: {
		isSet: func(p *Property) bool { return p.Type != TypeUnknown },
		valid: func(p *Property) bool { return p.Type.IsValid() },
		copy:  func(dst, src *Property) { dst.Type = src.Type },
	},
	FieldSaleDate: {
		isSet: func(p *Property) bool { return p.SaleDate != nil },
		valid: func(p *Property) bool { return !p.SaleDate.IsZero() && p.SaleDate.Year() >= MinYearBuilt },
		copy:  func(dst, src *Property) { dst.SaleDate = clonePtr(src.SaleDate) },
	},
	FieldFeatures: {
		isSet: func(p *Property) bool { return len(p.Features) > 0 },
		valid: func(p *Property) bool { return len(cleanList(p.Features)) > 0 },
		copy:  func(dst, src *Property) { dst.Features = cleanList(src.Features) },
	},
}

func stringSpec(get func(p *Property) *string) fieldSpec {
	return fieldSpec{
		isSet: func(p *Property) bool { return *get(p) != "" },
		valid: func(p *Property) bool { return !IsPlaceholder(*get(p)) },
		copy:  func(dst, src *Property) { *get(dst) = strings.TrimSpace(*get(src)) },
	}
}

func positiveSpec[T int | float64](get func(p *Property) **T) fieldSpec {
	return fieldSpec{
		isSet: func(p *Property) bool { return *get(p) != nil },
		valid: func(p *Property) bool {
			v := float64(**get(p))
			return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
		},
		copy: func(dst, src *Property) { *get(dst) = clonePtr(*get(src)) },
	}
}

func validCoordinates(c Coordinates) bool {
	if c.Lat == 0 && c.Lon == 0 {
		return false
	}
	return geo.ValidateCoordinates(c.Lat, c.Lon)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !IsPlaceholder(s) {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// IsSet reports whether p carries a value for f (valid or not).
func IsSet(p *Property, f Field) bool {
	spec, ok := validators[f]
	return ok && spec.isSet(p)
}

// IsValid reports whether the value p carries for f passes the field's
// validity predicate. Unset fields are never valid.
func IsValid(p *Property, f Field) bool {
	spec, ok := validators[f]
	return ok && spec.isSet(p) && spec.valid(p)
}

// Copy copies the value of f from src into dst.
func Copy(dst, src *Property, f Field) {
	if spec, ok := validators[f]; ok && spec.isSet(src) {
		spec.copy(dst, src)
	}
}

// Missing returns the fields of want that p has not filled, preserving order.
func Missing(p *Property, want []Field) []Field {
	var out []Field
	for _, f := range want {
		if !IsSet(p, f) {
			out = append(out, f)
		}
	}
	return out
}

// Sanitize returns a copy of p with every invalid value dropped.
// Used on partial payloads that do not go through a provider merge.
func Sanitize(p *Property) Property {
	out := Property{ID: p.ID}
	for _, f := range Fields {
		if IsValid(p, f) {
			Copy(&out, p, f)
			if s := p.SourceOf(f); s != SourceUnset {
				out.SetSource(f, s)
			}
		}
	}
	return out
}
