package basemap

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type topology struct {
	Type      string                  `json:"type"`
	Transform *topoTransform          `json:"transform"`
	Objects   map[string]topoGeometry `json:"objects"`
	Arcs      [][][]float64           `json:"arcs"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string             `json:"type"`
	ID         any                `json:"id"`
	Properties geojson.Properties `json:"properties"`
	Arcs       json.RawMessage    `json:"arcs"`
	Geometries []topoGeometry     `json:"geometries"`
}

// decodeTopology converts the named object of a TopoJSON topology into a
// feature collection, one feature per geometry, keeping ids and properties.
// Point geometries carry no arcs and are skipped.
func decodeTopology(data []byte, object string) (*geojson.FeatureCollection, error) {
	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if topo.Type != "Topology" {
		return nil, fmt.Errorf("decode topology: unexpected type %q", topo.Type)
	}
	obj, ok := topo.Objects[object]
	if !ok {
		return nil, fmt.Errorf("decode topology: object %q not found", object)
	}

	arcs := topo.absoluteArcs()
	fc := geojson.NewFeatureCollection()
	var visit func(g topoGeometry) error
	visit = func(g topoGeometry) error {
		if g.Type == "GeometryCollection" {
			for _, child := range g.Geometries {
				if err := visit(child); err != nil {
					return err
				}
			}
			return nil
		}
		geom, err := g.toOrb(arcs)
		if err != nil {
			return err
		}
		if geom != nil {
			f := geojson.NewFeature(geom)
			f.ID = g.ID
			if g.Properties != nil {
				f.Properties = g.Properties
			}
			fc.Append(f)
		}
		return nil
	}
	if err := visit(obj); err != nil {
		return nil, err
	}
	return fc, nil
}

// absoluteArcs undoes delta encoding and quantization when the topology
// carries a transform.
func (t topology) absoluteArcs() []orb.LineString {
	arcs := make([]orb.LineString, len(t.Arcs))
	for i, arc := range t.Arcs {
		ls := make(orb.LineString, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform == nil {
				ls = append(ls, orb.Point{pos[0], pos[1]})
				continue
			}
			x += pos[0]
			y += pos[1]
			ls = append(ls, orb.Point{
				x*t.Transform.Scale[0] + t.Transform.Translate[0],
				y*t.Transform.Scale[1] + t.Transform.Translate[1],
			})
		}
		arcs[i] = ls
	}
	return arcs
}

func (g topoGeometry) toOrb(arcs []orb.LineString) (orb.Geometry, error) {
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon arcs: %w", err)
		}
		return polygon(rings, arcs)
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return nil, fmt.Errorf("decode multipolygon arcs: %w", err)
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := polygon(rings, arcs)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var idx []int
		if err := json.Unmarshal(g.Arcs, &idx); err != nil {
			return nil, fmt.Errorf("decode linestring arcs: %w", err)
		}
		return stitch(idx, arcs)
	case "MultiLineString":
		var lines [][]int
		if err := json.Unmarshal(g.Arcs, &lines); err != nil {
			return nil, fmt.Errorf("decode multilinestring arcs: %w", err)
		}
		mls := make(orb.MultiLineString, 0, len(lines))
		for _, idx := range lines {
			ls, err := stitch(idx, arcs)
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		return mls, nil
	case "Point", "MultiPoint", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported topology geometry %q", g.Type)
	}
}

func polygon(rings [][]int, arcs []orb.LineString) (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(rings))
	for _, idx := range rings {
		ls, err := stitch(idx, arcs)
		if err != nil {
			return nil, err
		}
		p = append(p, orb.Ring(ls))
	}
	return p, nil
}

// stitch joins arcs end to end. A negative index ~i refers to arc i reversed.
// Consecutive arcs share their joining point, which is kept once.
func stitch(idx []int, arcs []orb.LineString) (orb.LineString, error) {
	var out orb.LineString
	for n, i := range idx {
		reversed := i < 0
		if reversed {
			i = ^i
		}
		if i >= len(arcs) {
			return nil, fmt.Errorf("arc index %d out of range (%d arcs)", i, len(arcs))
		}
		arc := arcs[i]
		if reversed {
			arc = arc.Clone()
			arc.Reverse()
		}
		if n > 0 && len(out) > 0 {
			out = out[:len(out)-1]
		}
		out = append(out, arc...)
	}
	return out, nil
}
