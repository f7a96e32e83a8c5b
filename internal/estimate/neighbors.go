package estimate

import (
	"container/heap"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// planePoint adapts a pattern point to the kdtree.Comparable interface.
type planePoint struct {
	X, Y float64
}

func (p planePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(planePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p planePoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance, per kdtree convention.
func (p planePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(planePoint)
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// planePoints satisfies kdtree.Interface.
type planePoints []planePoint

func (p planePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p planePoints) Len() int                      { return len(p) }
func (p planePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p planePoints) Pivot(d kdtree.Dim) int {
	return plane{planePoints: p, Dim: d}.Pivot()
}

// plane sorts planePoints along one dimension.
type plane struct {
	planePoints
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.planePoints[i].X < p.planePoints[j].X
	case 1:
		return p.planePoints[i].Y < p.planePoints[j].Y
	default:
		panic("illegal dimension")
	}
}
func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.planePoints = p.planePoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.planePoints[i], p.planePoints[j] = p.planePoints[j], p.planePoints[i]
}

// nearestNeighborDistances returns, for each point, the Euclidean distance to
// its nearest other point, using a kd-tree for the queries.
func nearestNeighborDistances[M comparable](p *pattern.Pattern[M]) []float64 {
	pts := p.Points()
	data := make(planePoints, len(pts))
	for i, pt := range pts {
		data[i] = planePoint{X: pt.X, Y: pt.Y}
	}
	tree := kdtree.New(data, true)

	out := make([]float64, len(pts))
	for i, pt := range pts {
		q := planePoint{X: pt.X, Y: pt.Y}
		// Keep the two closest matches: the query point itself and its
		// nearest neighbor. Coincident points legitimately yield distance 0.
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, q)
		var ds []float64
		for keeper.Len() > 0 {
			item := heap.Pop(keeper).(kdtree.ComparableDist)
			if item.Comparable == nil {
				continue
			}
			// Dist is the squared Euclidean distance.
			ds = append(ds, math.Sqrt(item.Dist))
		}
		sort.Float64s(ds)
		if len(ds) >= 2 {
			out[i] = ds[1]
		} else {
			out[i] = math.Inf(1)
		}
	}
	return out
}
