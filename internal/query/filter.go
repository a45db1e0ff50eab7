package query

import (
	"sort"
	"strconv"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// DefaultGeoDistance is the radius applied when a geo point is given without
// an explicit distance.
const DefaultGeoDistance = "50km"

// attributesPath is the nested path attribute pair filters match against.
const attributesPath = "attributes"

// BuildFilters translates request parameters into an ordered predicate list.
// Malformed numeric or geo values drop the corresponding predicate silently;
// repeated same-field values (categories, tags, attributes) each become an
// independent AND'd predicate.
func BuildFilters(req *domain.SearchRequest) []Predicate {
	var filters []Predicate

	if req.InStock {
		zero := 0.0
		filters = append(filters, RangePredicate{Field: "stock_quantity", GT: &zero})
	}

	for _, cat := range req.Categories {
		filters = append(filters, TermPredicate{Field: "category", Value: cat})
	}
	for _, tag := range req.Tags {
		filters = append(filters, TermPredicate{Field: "tags", Value: tag})
	}
	if req.Status != "" {
		filters = append(filters, TermPredicate{Field: "status", Value: req.Status})
	}

	if min, ok := parseFloat(req.MinPrice); ok {
		filters = append(filters, RangePredicate{Field: "price", GTE: &min})
	}
	if max, ok := parseFloat(req.MaxPrice); ok {
		filters = append(filters, RangePredicate{Field: "price", LTE: &max})
	}

	if point, ok := ParseGeoPoint(req.Lat, req.Lon); ok {
		distance := req.Distance
		if distance == "" {
			distance = DefaultGeoDistance
		}
		filters = append(filters, GeoDistancePredicate{
			Field:    "location",
			Point:    point,
			Distance: distance,
		})
	}

	// Dynamic attribute filters, in sorted key order for determinism.
	keys := make([]string, 0, len(req.Attributes))
	for k := range req.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		for _, value := range req.Attributes[name] {
			filters = append(filters, NestedPairPredicate{
				Path:  attributesPath,
				Name:  name,
				Value: value,
			})
		}
	}

	return filters
}

// ParseGeoPoint parses raw latitude/longitude strings. Both must be present
// and valid for a point to be returned.
func ParseGeoPoint(lat, lon string) (domain.GeoPoint, bool) {
	latF, okLat := parseFloat(lat)
	lonF, okLon := parseFloat(lon)
	if !okLat || !okLon {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: latF, Lon: lonF}, true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
