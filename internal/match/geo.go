package match

import "math"

// DefaultRadiusKM is the browse radius when none is configured.
const DefaultRadiusKM = 50.0

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points.
func HaversineKM(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// GeoScope decides whether two profiles are close enough to be matched.
type GeoScope struct {
	RadiusKM float64
}

// NewGeoScope returns a scope with the given radius, or the default radius
// when radiusKM is not positive.
func NewGeoScope(radiusKM float64) GeoScope {
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	return GeoScope{RadiusKM: radiusKM}
}

// Colocated reports whether viewer and candidate are within the radius or
// share a city. The distance is returned only when both have coordinates
// and are within the radius; it is rounded to 0.1 km.
func (g GeoScope) Colocated(viewer, candidate Profile) (bool, *float64) {
	var dist *float64
	if viewer.Point != nil && candidate.Point != nil {
		d := HaversineKM(*viewer.Point, *candidate.Point)
		if d <= g.RadiusKM {
			r := math.Round(d*10) / 10
			dist = &r
		}
	}
	if dist != nil {
		return true, dist
	}

	vc, cc := NormalizeCity(viewer.City), NormalizeCity(candidate.City)
	return vc != "" && vc == cc, nil
}

// Box is a lat/lon window. AllLon is set when the window would wrap the
// antimeridian or cover a pole, in which case longitude is unconstrained.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	AllLon         bool
}

// BoundingBox returns a window that contains every point within the radius
// of viewer. It never excludes an in-radius point; it may include some
// outside it. ok is false when viewer has no coordinates.
func (g GeoScope) BoundingBox(viewer Profile) (Box, bool) {
	if viewer.Point == nil {
		return Box{}, false
	}
	p := *viewer.Point

	// one degree of latitude is at least 110.57 km
	latDelta := g.RadiusKM / 110.0
	box := Box{
		MinLat: math.Max(-90, p.Lat-latDelta),
		MaxLat: math.Min(90, p.Lat+latDelta),
	}

	maxAbsLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	cos := math.Cos(toRad(maxAbsLat))
	if cos < 0.01 {
		box.AllLon = true
		return box, true
	}

	lonDelta := g.RadiusKM / (110.0 * cos)
	box.MinLon, box.MaxLon = p.Lon-lonDelta, p.Lon+lonDelta
	if box.MinLon < -180 || box.MaxLon > 180 {
		box.AllLon = true
	}
	return box, true
}
