package visualization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"pointcloudviz/internal/models"
)

// cloudPoint is a cloud point that remembers its index in the cloud
type cloudPoint struct {
	X, Y, Z float64
	Index   int
}

// coord returns the coordinate along axis d (0 = x, 1 = y, 2 = z)
func (p cloudPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	}
	panic("cloud points have three axes")
}

func (p cloudPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(cloudPoint).coord(d)
}

func (p cloudPoint) Dims() int { return 3 }

// Distance is squared; callers take the root before reporting it.
func (p cloudPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(cloudPoint)
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return dx*dx + dy*dy + dz*dz
}

type cloudPoints []cloudPoint

func (p cloudPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p cloudPoints) Len() int                              { return len(p) }
func (p cloudPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p cloudPoints) Pivot(d kdtree.Dim) int {
	byAxis := axisOrder{pts: p, axis: d}
	return kdtree.Partition(byAxis, kdtree.MedianOfRandoms(byAxis, 100))
}

// axisOrder sorts cloud points along one axis while the tree is built
type axisOrder struct {
	pts  cloudPoints
	axis kdtree.Dim
}

func (o axisOrder) Len() int           { return len(o.pts) }
func (o axisOrder) Less(i, j int) bool { return o.pts[i].coord(o.axis) < o.pts[j].coord(o.axis) }
func (o axisOrder) Swap(i, j int)      { o.pts[i], o.pts[j] = o.pts[j], o.pts[i] }

func (o axisOrder) Slice(start, end int) kdtree.SortSlicer {
	return axisOrder{pts: o.pts[start:end], axis: o.axis}
}

// Pick is a cloud point selected by proximity
type Pick struct {
	Index    int          `json:"index"`
	Point    models.Point `json:"point"`
	Distance float64      `json:"distance"`
}

// Picker answers nearest-point queries against one reconstructed cloud.
// It is used to highlight points, never to match points across clouds.
type Picker struct {
	cloud models.Cloud
	tree  *kdtree.Tree
}

// NewPicker indexes cloud. The cloud must not change afterwards.
func NewPicker(cloud models.Cloud) *Picker {
	pts := make(cloudPoints, cloud.Len())
	for i := range pts {
		pts[i] = cloudPoint{X: cloud.X[i], Y: cloud.Y[i], Z: cloud.Z[i], Index: i}
	}
	p := &Picker{cloud: cloud}
	if len(pts) > 0 {
		p.tree = kdtree.New(pts, false)
	}
	return p
}

// Nearest returns the cloud point closest to (x, y, z). ok is false for an
// empty cloud.
func (p *Picker) Nearest(x, y, z float64) (pick Pick, ok bool) {
	if p.tree == nil {
		return Pick{}, false
	}
	c, d := p.tree.Nearest(cloudPoint{X: x, Y: y, Z: z})
	if c == nil {
		return Pick{}, false
	}
	idx := c.(cloudPoint).Index
	return Pick{Index: idx, Point: p.cloud.At(idx), Distance: math.Sqrt(d)}, true
}

// NearestN returns up to n points closest to (x, y, z), closest first
func (p *Picker) NearestN(x, y, z float64, n int) []Pick {
	if p.tree == nil || n <= 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(n)
	p.tree.NearestSet(keep, cloudPoint{X: x, Y: y, Z: z})

	var picks []Pick
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		idx := cd.Comparable.(cloudPoint).Index
		picks = append(picks, Pick{Index: idx, Point: p.cloud.At(idx), Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].Distance != picks[j].Distance {
			return picks[i].Distance < picks[j].Distance
		}
		return picks[i].Index < picks[j].Index
	})
	return picks
}
