// Package property holds the subject/candidate property model, its per-field
// provenance and the validity table shared by every provider merge.
package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/geo"
)

// Field names a single resolvable property attribute.
type Field string

// Resolvable fields.
const (
	FieldParcelID     Field = "parcel_id"
	FieldStreet       Field = "street"
	FieldCity         Field = "city"
	FieldState        Field = "state"
	FieldZip          Field = "zip"
	FieldLocation     Field = "location"
	FieldSquareFeet   Field = "square_feet"
	FieldBedrooms     Field = "bedrooms"
	FieldBathrooms    Field = "bathrooms"
	FieldLotSize      Field = "lot_size_sqft"
	FieldYearBuilt    Field = "year_built"
	FieldStories      Field = "stories"
	FieldType         Field = "property_type"
	FieldSalePrice    Field = "sale_price"
	FieldSaleDate     Field = "sale_date"
	FieldDaysOnMarket Field = "days_on_market"
	FieldListPrice    Field = "list_price"
	FieldConcessions  Field = "seller_concessions"
	FieldFeatures     Field = "features"
)

// Source identifies who supplied a field value.
type Source string

const (
	// SourceUnset marks a field nobody supplied.
	SourceUnset Source = "unset"
	// SourceEstimated marks a value derived by the square-footage estimator.
	SourceEstimated Source = "estimated"
	// SourceQuery marks identity fields supplied by the caller.
	SourceQuery Source = "query"
)

// Address is a postal address.
type Address struct {
	Street string `json:"street,omitempty" yaml:"street"`
	City   string `json:"city,omitempty" yaml:"city"`
	State  string `json:"state,omitempty" yaml:"state"`
	Zip    string `json:"zip,omitempty" yaml:"zip"`
}

// String formats the address on one line.
func (a Address) String() string {
	parts := make([]string, 0, 3)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	stateZip := strings.TrimSpace(a.State + " " + a.Zip)
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// Coordinates is a WGS84 point in degrees.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Property is a subject or candidate property merged from one or more providers.
// Optional attributes are nil until some provider supplies a valid value.
type Property struct {
	ID                string       `json:"id" yaml:"id"`
	ParcelID          string       `json:"parcel_id,omitempty" yaml:"parcel_id"`
	Address           Address      `json:"address" yaml:"address"`
	Location          *Coordinates `json:"location,omitempty" yaml:"location"`
	SquareFeet        *int         `json:"square_feet,omitempty" yaml:"square_feet"`
	Bedrooms          *int         `json:"bedrooms,omitempty" yaml:"bedrooms"`
	Bathrooms         *float64     `json:"bathrooms,omitempty" yaml:"bathrooms"`
	LotSizeSqft       *float64     `json:"lot_size_sqft,omitempty" yaml:"lot_size_sqft"`
	YearBuilt         *int         `json:"year_built,omitempty" yaml:"year_built"`
	Stories           *int         `json:"stories,omitempty" yaml:"stories"`
	Type              Type         `json:"property_type,omitempty" yaml:"property_type"`
	SalePrice         *float64     `json:"sale_price,omitempty" yaml:"sale_price"`
	SaleDate          *time.Time   `json:"sale_date,omitempty" yaml:"sale_date"`
	DaysOnMarket      *int         `json:"days_on_market,omitempty" yaml:"days_on_market"`
	ListPrice         *float64     `json:"list_price,omitempty" yaml:"list_price"`
	SellerConcessions *float64     `json:"seller_concessions,omitempty" yaml:"seller_concessions"`
	Features          []string     `json:"features,omitempty" yaml:"features"`

	Provenance map[Field]Source `json:"provenance,omitempty" yaml:"-"`
}

// SourceOf returns the provenance of a field, SourceUnset if nobody filled it.
func (p *Property) SourceOf(f Field) Source {
	if s, ok := p.Provenance[f]; ok {
		return s
	}
	return SourceUnset
}

// SetSource records the provenance of a field.
func (p *Property) SetSource(f Field, s Source) {
	if p.Provenance == nil {
		p.Provenance = make(map[Field]Source)
	}
	p.Provenance[f] = s
}

// Price returns the sale price, falling back to the list price.
func (p *Property) Price() (float64, bool) {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice, true
	}
	if p.ListPrice != nil && *p.ListPrice > 0 {
		return *p.ListPrice, true
	}
	return 0, false
}

// AskingPrice returns the list price, falling back to the sale price.
// Used for the subject, which is usually listed rather than sold.
func (p *Property) AskingPrice() (float64, bool) {
	if p.ListPrice != nil && *p.ListPrice > 0 {
		return *p.ListPrice, true
	}
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice, true
	}
	return 0, false
}

// PricePerSqft returns Price / SquareFeet when both are known.
func (p *Property) PricePerSqft() (float64, bool) {
	price, ok := p.Price()
	if !ok || p.SquareFeet == nil || *p.SquareFeet <= 0 {
		return 0, false
	}
	return price / float64(*p.SquareFeet), true
}

// Clone returns a deep copy.
func (p *Property) Clone() Property {
	c := *p
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	c.SquareFeet = clonePtr(p.SquareFeet)
	c.Bedrooms = clonePtr(p.Bedrooms)
	c.Bathrooms = clonePtr(p.Bathrooms)
	c.LotSizeSqft = clonePtr(p.LotSizeSqft)
	c.YearBuilt = clonePtr(p.YearBuilt)
	c.Stories = clonePtr(p.Stories)
	c.SalePrice = clonePtr(p.SalePrice)
	c.SaleDate = clonePtr(p.SaleDate)
	c.DaysOnMarket = clonePtr(p.DaysOnMarket)
	c.ListPrice = clonePtr(p.ListPrice)
	c.SellerConcessions = clonePtr(p.SellerConcessions)
	if p.Features != nil {
		c.Features = append([]string(nil), p.Features...)
	}
	if p.Provenance != nil {
		c.Provenance = make(map[Field]Source, len(p.Provenance))
		for k, v := range p.Provenance {
			c.Provenance[k] = v
		}
	}
	return c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Query identifies the property to resolve.
type Query struct {
	ParcelID string  `json:"parcel_id,omitempty"`
	Address  Address `json:"address"`
}

// Validate checks that the query carries a parcel id or at least a street.
func (q Query) Validate() error {
	if strings.TrimSpace(q.ParcelID) == "" && strings.TrimSpace(q.Address.Street) == "" {
		return fmt.Errorf("%w: parcel id or street address is required", domain.ErrInvalidQuery)
	}
	return nil
}

// Identity returns the stable property id: the parcel id when present,
// otherwise the lower-cased one-line address.
func (q Query) Identity() string {
	if id := strings.TrimSpace(q.ParcelID); id != "" {
		return id
	}
	return strings.ToLower(strings.Join(strings.Fields(q.Address.String()), " "))
}

// NewFromQuery seeds a Property from the query identity. Valid identity
// fields taken from the query are attributed to SourceQuery.
func NewFromQuery(q Query) Property {
	p := Property{ID: q.Identity()}
	seed := Property{ParcelID: strings.TrimSpace(q.ParcelID), Address: q.Address}
	for _, f := range identityFields {
		if IsSet(&seed, f) && IsValid(&seed, f) {
			Copy(&p, &seed, f)
			p.SetSource(f, SourceQuery)
		}
	}
	return p
}

// DistanceMiles returns the great-circle distance to other when both
// locations are known.
func (p *Property) DistanceMiles(other *Property) (float64, bool) {
	if p.Location == nil || other.Location == nil {
		return 0, false
	}
	return geo.DistanceMiles(p.Location.Lat, p.Location.Lon, other.Location.Lat, other.Location.Lon), true
}
