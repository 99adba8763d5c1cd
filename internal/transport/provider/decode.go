package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/property"
)

// dateLayouts are the sale date formats accepted from providers.
var dateLayouts = []string{time.RFC3339, "2006-01-02", "01/02/2006", "2006/01/02"}

// decodeRecord converts a loosely typed JSON object into a Property using
// keys, which maps fields to dotted JSON paths. Values that cannot be
// converted are left unset; the resolver's validity table drops the rest.
func decodeRecord(raw map[string]any, keys map[property.Field]string) property.Property {
	var p property.Property
	for _, f := range property.Fields {
		path, ok := keys[f]
		if !ok {
			path = string(f)
		}
		if f == property.FieldLocation {
			p.Location = decodeLocation(raw, path)
			continue
		}
		v, ok := lookup(raw, path)
		if !ok || v == nil {
			continue
		}
		assign(&p, f, v)
	}
	return p
}

func assign(p *property.Property, f property.Field, v any) {
	switch f {
	case property.FieldParcelID:
		p.ParcelID = asString(v)
	case property.FieldStreet:
		p.Address.Street = asString(v)
	case property.FieldCity:
		p.Address.City = asString(v)
	case property.FieldState:
		p.Address.State = strings.ToUpper(asString(v))
	case property.FieldZip:
		p.Address.Zip = asString(v)
	case property.FieldSquareFeet:
		p.SquareFeet = asInt(v)
	case property.FieldBedrooms:
		p.Bedrooms = asInt(v)
	case property.FieldBathrooms:
		p.Bathrooms = asFloat(v)
	case property.FieldLotSize:
		p.LotSizeSqft = asFloat(v)
	case property.FieldYearBuilt:
		p.YearBuilt = asInt(v)
	case property.FieldStories:
		p.Stories = asInt(v)
	case property.FieldType:
		p.Type = property.ParseType(asString(v))
	case property.FieldSalePrice:
		p.SalePrice = asFloat(v)
	case property.FieldSaleDate:
		p.SaleDate = asDate(v)
	case property.FieldDaysOnMarket:
		p.DaysOnMarket = asInt(v)
	case property.FieldListPrice:
		p.ListPrice = asFloat(v)
	case property.FieldConcessions:
		p.SellerConcessions = asFloat(v)
	case property.FieldFeatures:
		p.Features = asStrings(v)
	}
}

// decodeLocation reads either an object at path ({lat,lon} or
// {latitude,longitude}) or two comma-separated paths "lat.path,lon.path".
func decodeLocation(raw map[string]any, path string) *property.Coordinates {
	if latPath, lonPath, ok := strings.Cut(path, ","); ok {
		lat, okLat := lookup(raw, strings.TrimSpace(latPath))
		lon, okLon := lookup(raw, strings.TrimSpace(lonPath))
		if !okLat || !okLon {
			return nil
		}
		return coordinates(lat, lon)
	}
	v, ok := lookup(raw, path)
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if lat, ok := obj["lat"]; ok {
		return coordinates(lat, obj["lon"])
	}
	return coordinates(obj["latitude"], obj["longitude"])
}

func coordinates(lat, lon any) *property.Coordinates {
	la, lo := asFloat(lat), asFloat(lon)
	if la == nil || lo == nil {
		return nil
	}
	return &property.Coordinates{Lat: *la, Lon: *lo}
}

// lookup walks a dotted path through nested objects.
func lookup(raw map[string]any, path string) (any, bool) {
	cur := any(raw)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func asFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		s := strings.NewReplacer(",", "", "$", "", " ", "").Replace(x)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func asInt(v any) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func asDate(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(x, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// identity returns p's id, deriving it like a query would when absent.
func identity(p *property.Property) string {
	if p.ID != "" {
		return p.ID
	}
	return property.Query{ParcelID: p.ParcelID, Address: p.Address}.Identity()
}
