package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// Assignment is a committed one-to-one pair; A and B index rows and columns of
// the score matrix.
type Assignment struct {
	A, B  int
	Score float64
}

// Assigner resolves a score matrix into one-to-one pairs. Entries below
// threshold, and zero scores, are never assigned. Results are sorted by row.
type Assigner interface {
	Assign(scores [][]float64, threshold float64) []Assignment
}

func NewAssigner(strategy domain.AssignmentStrategy) Assigner {
	if strategy == domain.AssignOptimal {
		return HungarianAssigner{}
	}
	return GreedyAssigner{}
}

func admissible(score, threshold float64) bool {
	return score > 0 && score >= threshold
}

// GreedyAssigner repeatedly commits the highest-scoring pair whose row and
// column are both free. Equal scores resolve by row index, then column index.
// This is not the maximum-weight matching.
type GreedyAssigner struct{}

func (GreedyAssigner) Assign(scores [][]float64, threshold float64) []Assignment {
	var pool []Assignment
	cols := 0
	for i, row := range scores {
		cols = max(cols, len(row))
		for j, s := range row {
			if admissible(s, threshold) {
				pool = append(pool, Assignment{A: i, B: j, Score: s})
			}
		}
	}
	sort.SliceStable(pool, func(x, y int) bool {
		if pool[x].Score != pool[y].Score {
			return pool[x].Score > pool[y].Score
		}
		if pool[x].A != pool[y].A {
			return pool[x].A < pool[y].A
		}
		return pool[x].B < pool[y].B
	})

	usedA := make([]bool, len(scores))
	usedB := make([]bool, cols)
	var out []Assignment
	for _, p := range pool {
		if usedA[p.A] || usedB[p.B] {
			continue
		}
		usedA[p.A] = true
		usedB[p.B] = true
		out = append(out, p)
	}
	sortByRow(out)
	return out
}

// HungarianAssigner solves the assignment with Kuhn-Munkres: it maximizes the
// number of admissible pairs, then their total score.
type HungarianAssigner struct{}

func (HungarianAssigner) Assign(scores [][]float64, threshold float64) []Assignment {
	n := len(scores)
	if n == 0 {
		return nil
	}
	m := 0
	for _, row := range scores {
		m = max(m, len(row))
	}
	if m == 0 {
		return nil
	}

	dim := max(n, m)
	// Any forbidden cell costs more than every admissible pair combined, so
	// cardinality dominates total score.
	forbidden := float64(dim + 1)
	cost := make([][]float64, dim)
	for i := range cost {
		cost[i] = make([]float64, dim)
		for j := range cost[i] {
			cost[i][j] = forbidden
			if i < n && j < len(scores[i]) && admissible(scores[i][j], threshold) {
				cost[i][j] = 1 - scores[i][j]
			}
		}
	}

	rowOf := solveAssignment(cost)

	var out []Assignment
	for j, i := range rowOf {
		if i < 0 || i >= n || j >= len(scores[i]) {
			continue
		}
		if !admissible(scores[i][j], threshold) {
			continue
		}
		out = append(out, Assignment{A: i, B: j, Score: scores[i][j]})
	}
	sortByRow(out)
	return out
}

// solveAssignment runs the potentials form of the Hungarian method over a
// square cost matrix and returns rowOf[col].
func solveAssignment(c [][]float64) []int {
	dim := len(c)
	inf := math.MaxFloat64 / 2

	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowOf := make([]int, dim)
	for j := 1; j <= dim; j++ {
		rowOf[j-1] = p[j] - 1
	}
	return rowOf
}

func sortByRow(pairs []Assignment) {
	sort.Slice(pairs, func(x, y int) bool { return pairs[x].A < pairs[y].A })
}
