/**
 * DBSCAN Clustering.
 *
 * Density-based clustering of standardised packet feature vectors.
 * Textbook DBSCAN with Euclidean distance: core points need
 * min_samples neighbours (the point itself included) within eps;
 * labels are assigned deterministically in point-index order. -1 marks
 * noise.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package cluster

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Noise label assigned to points belonging to no cluster.
const Noise = -1

// Z-scores each column in place: (v - mean) / populationStdDev. A
// zero-variance column scales by 1, leaving every value at 0.
func Standardize(points [][]float64) {
	if len(points) == 0 {
		return
	}
	dims := len(points[0])
	column := make([]float64, len(points))

	for d := 0; d < dims; d++ {
		for i := range points {
			column[i] = points[i][d]
		}
		mean := stat.Mean(column, nil)
		std := stat.PopStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		for i := range points {
			points[i][d] = (points[i][d] - mean) / std
		}
	}
}

// Runs DBSCAN over the points and returns one label per point: cluster
// ids counting from 0, or Noise.
func DBSCAN(points [][]float64, eps float64, minSamples int) []int {
	const unvisited = -2

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = next
		// Seed set expansion; queue grows while new core points appear.
		queue := append([]int(nil), neighbors...)
		for head := 0; head < len(queue); head++ {
			j := queue[head]
			if labels[j] == Noise {
				labels[j] = next // border point reclaimed from noise
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = next

			jn := regionQuery(points, j, eps)
			if len(jn) >= minSamples {
				queue = append(queue, jn...)
			}
		}
		next++
	}

	return labels
}

// Indices of all points within eps of points[i], i included.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
