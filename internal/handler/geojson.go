package handler

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/iliyamo/carpool-marketplace/internal/model"
)

// routeFromGeoJSON converts the optional planned-route geometry from the
// request into the WKB bytes stored on the trip row. Only LineStrings are
// accepted.
func routeFromGeoJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, model.Validationf("route is not valid GeoJSON: %v", err)
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return nil, model.ValidationError("route must be a GeoJSON LineString")
	}
	if line.NumCoords() < 2 {
		return nil, model.ValidationError("route needs at least two points")
	}
	encoded, err := wkb.Marshal(line, wkb.NDR)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

// routeToGeoJSON decodes the stored WKB route back into GeoJSON for
// responses. A missing or undecodable route yields nil, never an error;
// the route is advisory data.
func routeToGeoJSON(encoded []byte) json.RawMessage {
	if len(encoded) == 0 {
		return nil
	}
	g, err := wkb.Unmarshal(encoded)
	if err != nil {
		return nil
	}
	raw, err := geojson.Marshal(g)
	if err != nil {
		return nil
	}
	return raw
}
