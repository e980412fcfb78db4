// Package geo answers proximity questions between named work areas.
package geo

import (
	"math"
	"sort"
	"strings"
)

const earthRadiusKm = 6371.0

type Coordinates struct {
	Lat float64
	Lng float64
}

// Area is a named place. An area whose coordinates cannot be resolved, from
// the area itself or the gazetteer, is isolated: it has no neighbours and is
// nobody's neighbour.
type Area struct {
	Name   string
	Coords *Coordinates
}

type Neighbor struct {
	Area       string
	DistanceKm float64
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// Key normalises an area name for comparisons.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Index is a linear-scan adjacency index. Farriers declare tens of areas, so
// no spatial structure is needed.
type Index struct {
	areas     []Area
	byKey     map[string]int
	gazetteer map[string]Coordinates
}

// NewIndex builds an index over areas. When the same name appears twice the
// first entry with coordinates wins.
func NewIndex(areas []Area) *Index {
	idx := &Index{byKey: make(map[string]int, len(areas))}
	for _, a := range areas {
		k := Key(a.Name)
		if k == "" {
			continue
		}
		if i, ok := idx.byKey[k]; ok {
			if idx.areas[i].Coords == nil && a.Coords != nil {
				idx.areas[i].Coords = a.Coords
			}
			continue
		}
		idx.byKey[k] = len(idx.areas)
		idx.areas = append(idx.areas, a)
	}
	return idx
}

// WithGazetteer makes the index fall back to g for names it has no
// coordinates for.
func (idx *Index) WithGazetteer(g map[string]Coordinates) *Index {
	idx.gazetteer = make(map[string]Coordinates, len(g))
	for name, c := range g {
		idx.gazetteer[Key(name)] = c
	}
	return idx
}

// Resolve returns the coordinates known for name.
func (idx *Index) Resolve(name string) (Coordinates, bool) {
	k := Key(name)
	if i, ok := idx.byKey[k]; ok && idx.areas[i].Coords != nil {
		return *idx.areas[i].Coords, true
	}
	if c, ok := idx.gazetteer[k]; ok {
		return c, true
	}
	return Coordinates{}, false
}

// Distance returns the distance between two named areas, false when either
// is isolated.
func (idx *Index) Distance(a, b string) (float64, bool) {
	ca, ok := idx.Resolve(a)
	if !ok {
		return 0, false
	}
	cb, ok := idx.Resolve(b)
	if !ok {
		return 0, false
	}
	return Haversine(ca, cb), true
}

// Neighbors returns indexed areas within radiusKm of area, nearest first,
// ties broken by name. The area itself is never included.
func (idx *Index) Neighbors(area string, radiusKm float64) []Neighbor {
	origin, ok := idx.Resolve(area)
	if !ok {
		return nil
	}
	self := Key(area)

	var out []Neighbor
	for _, a := range idx.areas {
		if Key(a.Name) == self {
			continue
		}
		c, ok := idx.Resolve(a.Name)
		if !ok {
			continue
		}
		d := Haversine(origin, c)
		if d <= radiusKm {
			out = append(out, Neighbor{Area: a.Name, DistanceKm: d})
		}
	}

	SortNeighbors(out)
	return out
}

// SortNeighbors orders by distance, then name.
func SortNeighbors(ns []Neighbor) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].DistanceKm != ns[j].DistanceKm {
			return ns[i].DistanceKm < ns[j].DistanceKm
		}
		return ns[i].Area < ns[j].Area
	})
}
