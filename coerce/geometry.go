package coerce

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/hugr-lab/docbridge/docjson"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

// toGeometry decodes a GeoJSON geometry document.
func toGeometry(raw rawvalue.Value, col schema.Column) (any, error) {
	doc, ok := raw.(rawvalue.Document)
	if !ok {
		return nil, mismatch(col, raw, "expected a GeoJSON geometry document")
	}
	text, err := docjson.Render(doc)
	if err != nil {
		return nil, mismatch(col, raw, err.Error())
	}
	g, err := geojson.UnmarshalGeometry([]byte(text))
	if err != nil {
		return nil, mismatch(col, raw, "invalid GeoJSON: "+err.Error())
	}
	geom := g.Geometry()
	if err := validateGeometry(geom); err != nil {
		return nil, mismatch(col, raw, err.Error())
	}
	return geom, nil
}

// validateGeometry rejects geometries WKB cannot represent faithfully.
func validateGeometry(geom orb.Geometry) error {
	switch g := geom.(type) {
	case nil:
		return fmt.Errorf("geometry is empty")
	case orb.Point:
		return nil
	case orb.MultiPoint:
		if len(g) == 0 {
			return fmt.Errorf("multipoint is empty")
		}
	case orb.LineString:
		if len(g) < 2 {
			return fmt.Errorf("linestring must have at least 2 points, has %d", len(g))
		}
	case orb.MultiLineString:
		for i, ls := range g {
			if len(ls) < 2 {
				return fmt.Errorf("multilinestring[%d] must have at least 2 points, has %d", i, len(ls))
			}
		}
	case orb.Polygon:
		for i, ring := range g {
			if len(ring) < 4 {
				return fmt.Errorf("polygon ring[%d] must have at least 4 points, has %d", i, len(ring))
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				return fmt.Errorf("polygon ring[%d] is not closed", i)
			}
		}
	case orb.MultiPolygon:
		for i, poly := range g {
			if err := validateGeometry(poly); err != nil {
				return fmt.Errorf("multipolygon[%d]: %w", i, err)
			}
		}
	case orb.Collection:
		for i, member := range g {
			if err := validateGeometry(member); err != nil {
				return fmt.Errorf("collection[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported geometry type %T", geom)
	}
	return nil
}
